package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shpitdev/entity-research/internal/research"
)

const (
	DefaultReaderBaseURL = "https://r.jina.ai"
	defaultReaderMax     = 2 << 20
)

type ReaderConfig struct {
	BaseURL string

	// MaxBytes caps the page body kept per fetch. Zero means 2 MiB.
	MaxBytes int64

	HTTPClient *http.Client
}

// Reader renders pages to text through a reader proxy: GET {base}/{url}.
type Reader struct {
	baseURL  *url.URL
	maxBytes int64
	http     *http.Client
}

var _ research.Fetcher = (*Reader)(nil)

func NewReader(cfg ReaderConfig) (*Reader, error) {
	base, err := parseBase(cfg.BaseURL, DefaultReaderBaseURL)
	if err != nil {
		return nil, fmt.Errorf("reader base url: %w", err)
	}
	limit := cfg.MaxBytes
	if limit <= 0 {
		limit = defaultReaderMax
	}
	return &Reader{baseURL: base, maxBytes: limit, http: httpClient(cfg.HTTPClient)}, nil
}

func (r *Reader) Fetch(ctx context.Context, pageURL string) (string, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", fmt.Errorf("reader: empty url")
	}
	target := r.baseURL.String() + "/" + pageURL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode/100 != 2 {
		return "", newHTTPError("reader", resp, b)
	}
	return string(b), nil
}
