// Package websearch holds the web search backends and the page reader used to
// hydrate search hits into documents.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shpitdev/entity-research/internal/research"
)

const DefaultBraveBaseURL = "https://api.search.brave.com"

type BraveConfig struct {
	APIKey  string
	BaseURL string

	// RPS paces requests. The free Brave plan allows one request per second.
	RPS float64

	HTTPClient *http.Client
}

// Brave is the primary search backend.
type Brave struct {
	apiKey  string
	baseURL *url.URL
	limiter *rate.Limiter
	http    *http.Client
}

var _ research.Backend = (*Brave)(nil)

func NewBrave(cfg BraveConfig) (*Brave, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("BRAVE_API_KEY is required")
	}
	base, err := parseBase(cfg.BaseURL, DefaultBraveBaseURL)
	if err != nil {
		return nil, fmt.Errorf("brave base url: %w", err)
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	return &Brave{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		http:    httpClient(cfg.HTTPClient),
	}, nil
}

func (b *Brave) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string, count int) ([]research.Hit, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := b.baseURL.JoinPath("res", "v1", "web", "search")
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	var out braveResponse
	if err := doJSON(b.http, req, b.Name(), &out); err != nil {
		return nil, err
	}
	hits := make([]research.Hit, 0, len(out.Web.Results))
	for _, r := range out.Web.Results {
		hits = append(hits, research.Hit{Title: r.Title, URL: r.URL})
	}
	return hits, nil
}

func doJSON(client *http.Client, req *http.Request, provider string, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return newHTTPError(provider, resp, b)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%s: parse response: %w", provider, err)
	}
	return nil
}

func parseBase(raw, fallback string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", raw)
	}
	return u, nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}
