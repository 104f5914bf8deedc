// Package apollo is a minimal client for the Apollo organization and people
// search endpoints.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shpitdev/entity-research/internal/worker"
)

const DefaultBaseURL = "https://api.apollo.io"

type Config struct {
	APIKey  string
	BaseURL string

	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	baseURL *url.URL
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("APOLLO_API_KEY is required")
	}
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse apollo base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid apollo base url %q", raw)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: base, http: hc}, nil
}

// SearchCompany returns the best organization match, or nil when Apollo has
// none.
func (c *Client) SearchCompany(ctx context.Context, q CompanyQuery) (*CompanyRecord, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = 10
	}
	var out companiesResponse
	if err := c.post(ctx, "searchCompanies", c.baseURL.JoinPath("api", "v1", "mixed_companies", "search"), q, &out); err != nil {
		return nil, err
	}
	if len(out.Organizations) == 0 {
		return nil, nil
	}
	rec := out.Organizations[0].record()
	return &rec, nil
}

type peopleRequest struct {
	PeopleQuery
	OrganizationDomains string `json:"q_organization_domains,omitempty"`
}

// SearchPeople returns one page of people. Employment history keeps Apollo's
// order (most recent first).
func (c *Client) SearchPeople(ctx context.Context, q PeopleQuery) ([]PersonRecord, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = 100
	}
	req := peopleRequest{
		PeopleQuery:         q,
		OrganizationDomains: strings.Join(q.OrganizationDomains, "\n"),
	}
	var out peopleResponse
	if err := c.post(ctx, "searchPeople", c.baseURL.JoinPath("v1", "mixed_people", "search"), req, &out); err != nil {
		return nil, err
	}
	recs := make([]PersonRecord, 0, len(out.People))
	for _, p := range out.People {
		recs = append(recs, p.record())
	}
	return recs, nil
}

func (c *Client) post(ctx context.Context, op string, u *url.URL, body any, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		// The upstream dropped the response mid-body: worth one more try.
		return &worker.LimitedTransientError{Err: fmt.Errorf("%s: read response: %w", op, err), ExtraRetries: 1}
	}
	if resp.StatusCode/100 != 2 {
		return newHTTPError(op, resp, b)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse %s response: %w", op, err)
	}
	return nil
}
