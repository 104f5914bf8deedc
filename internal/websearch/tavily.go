package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shpitdev/entity-research/internal/research"
)

const DefaultTavilyBaseURL = "https://api.tavily.com"

type TavilyConfig struct {
	APIKey  string
	BaseURL string

	// SearchDepth is "basic" or "advanced".
	SearchDepth string

	HTTPClient *http.Client
}

// Tavily is the secondary search backend.
type Tavily struct {
	apiKey  string
	depth   string
	baseURL *url.URL
	http    *http.Client
}

var _ research.Backend = (*Tavily)(nil)

func NewTavily(cfg TavilyConfig) (*Tavily, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY is required")
	}
	base, err := parseBase(cfg.BaseURL, DefaultTavilyBaseURL)
	if err != nil {
		return nil, fmt.Errorf("tavily base url: %w", err)
	}
	depth := strings.TrimSpace(cfg.SearchDepth)
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		depth:   depth,
		baseURL: base,
		http:    httpClient(cfg.HTTPClient),
	}, nil
}

func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, count int) ([]research.Hit, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		MaxResults:  count,
		SearchDepth: t.depth,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL.JoinPath("search").String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out tavilyResponse
	if err := doJSON(t.http, req, t.Name(), &out); err != nil {
		return nil, err
	}
	hits := make([]research.Hit, 0, len(out.Results))
	for _, r := range out.Results {
		hits = append(hits, research.Hit{Title: r.Title, URL: r.URL})
	}
	return hits, nil
}
