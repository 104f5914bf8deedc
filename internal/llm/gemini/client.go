// Package gemini implements the research model capabilities (relevance
// classification, query rewriting and structured extraction) on Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/worker"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// generateFunc sends one prompt with a structured-output config and returns
// the response text.
type generateFunc func(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error)

// Client satisfies research.ClassifyModel, research.RewriteModel and
// research.ExtractModel.
type Client struct {
	model    string
	generate generateFunc
}

var (
	_ research.ClassifyModel = (*Client)(nil)
	_ research.RewriteModel  = (*Client)(nil)
	_ research.ExtractModel  = (*Client)(nil)
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	return &Client{
		model: model,
		generate: func(ctx context.Context, prompt string, gcfg *genai.GenerateContentConfig) (string, error) {
			resp, err := gc.Models.GenerateContent(ctx, model, genai.Text(prompt), gcfg)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type gradeResponse struct {
	BinaryScore string `json:"binary_score"`
}

func (c *Client) Classify(ctx context.Context, entityType research.EntityType, question, content string) (string, error) {
	var out gradeResponse
	if err := c.call(ctx, "classify", buildGradePrompt(entityType, question, content), gradeSchema, &out); err != nil {
		return "", err
	}
	return out.BinaryScore, nil
}

type rewriteResponse struct {
	Question string `json:"question"`
}

func (c *Client) Rewrite(ctx context.Context, entityType research.EntityType, question string) (string, error) {
	var out rewriteResponse
	if err := c.call(ctx, "rewrite", buildRewritePrompt(entityType, question), rewriteSchema, &out); err != nil {
		return "", err
	}
	return out.Question, nil
}

type extractResponse struct {
	Companies []research.Company `json:"companies"`
	People    []research.Person  `json:"people"`
}

func (c *Client) Extract(ctx context.Context, entityType research.EntityType, question, content string) ([]research.Entity, error) {
	schema, ok := extractSchemas[entityType]
	if !ok {
		return nil, fmt.Errorf("gemini: %w: %q", research.ErrUnknownEntityType, entityType)
	}
	var out extractResponse
	if err := c.call(ctx, "extract", buildExtractPrompt(entityType, question, content), schema, &out); err != nil {
		return nil, err
	}

	var entities []research.Entity
	switch entityType {
	case research.EntityCompanies:
		for _, co := range out.Companies {
			co = normalizeCompany(co)
			if co.Name == "" {
				continue
			}
			entities = append(entities, research.CompanyEntity(co))
		}
	case research.EntityPeople:
		for _, p := range out.People {
			p = normalizePerson(p)
			if p.FullName() == "" && p.LinkedInURL == "" {
				continue
			}
			entities = append(entities, research.PersonEntity(p))
		}
	}
	return entities, nil
}

func (c *Client) call(ctx context.Context, capability, prompt string, schema *genai.Schema, dst any) error {
	text, err := c.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return classifyErr(err)
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("gemini: %s: parse structured json: %w", capability, err)
	}
	return nil
}

func classifyErr(err error) error {
	// Transient failures are retried by the worker pool with backoff.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &worker.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &worker.TransientError{Err: err}
	}
	return err
}

func normalizeCompany(c research.Company) research.Company {
	c.Name = strings.TrimSpace(c.Name)
	c.LinkedInURL = strings.TrimSpace(c.LinkedInURL)
	c.WebsiteURL = strings.TrimSpace(c.WebsiteURL)
	c.EmployeeRanges = compact(c.EmployeeRanges)
	c.Locations = compact(c.Locations)
	c.NotLocations = compact(c.NotLocations)
	c.KeywordTags = compact(c.KeywordTags)
	return c
}

func normalizePerson(p research.Person) research.Person {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Title = strings.TrimSpace(p.Title)
	p.Headline = strings.TrimSpace(p.Headline)
	p.Email = strings.TrimSpace(p.Email)
	p.LinkedInURL = strings.TrimSpace(p.LinkedInURL)
	if p.Organization != nil && strings.TrimSpace(p.Organization.Name) == "" && strings.TrimSpace(p.Organization.LinkedInURL) == "" {
		p.Organization = nil
	}
	return p
}

// compact trims values and drops blanks and the literal "None" models like to
// emit for unknown fields.
func compact(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "none") {
			continue
		}
		out = append(out, v)
	}
	return out
}
