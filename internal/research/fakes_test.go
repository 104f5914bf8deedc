package research_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shpitdev/entity-research/internal/research"
)

type backendCall struct {
	Query string
	Count int
}

// fakeBackend replays one response per call. When responses run out the last
// one repeats.
type fakeBackend struct {
	name      string
	responses []backendResponse

	mu    sync.Mutex
	calls []backendCall
}

type backendResponse struct {
	hits []research.Hit
	err  error
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Search(_ context.Context, query string, count int) ([]research.Hit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, backendCall{Query: query, Count: count})
	if len(b.responses) == 0 {
		return nil, nil
	}
	idx := len(b.calls) - 1
	if idx >= len(b.responses) {
		idx = len(b.responses) - 1
	}
	r := b.responses[idx]
	return r.hits, r.err
}

func (b *fakeBackend) Calls() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

func hits(urls ...string) []research.Hit {
	out := make([]research.Hit, 0, len(urls))
	for _, u := range urls {
		out = append(out, research.Hit{Title: "title of " + u, URL: u})
	}
	return out
}

type fakeFetcher struct {
	fail map[string]bool

	mu      sync.Mutex
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	if f.fail[url] {
		return "", fmt.Errorf("GET %s: 502 bad gateway", url)
	}
	return "page body of " + url, nil
}

// scriptedSearch is a SearchProvider returning canned document sets in call
// order.
type scriptedSearch struct {
	results [][]research.Document

	mu      sync.Mutex
	queries []string
}

func (s *scriptedSearch) Search(_ context.Context, query string, _ int) []research.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	idx := len(s.queries) - 1
	if idx >= len(s.results) {
		return []research.Document{research.NoResultsDocument()}
	}
	return s.results[idx]
}

func (s *scriptedSearch) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// stubModel implements the three model capabilities with plain funcs and
// records every call.
type stubModel struct {
	classify func(question, content string) (string, error)
	rewrite  func(question string) (string, error)
	extract  func(question, content string) ([]research.Entity, error)

	mu        sync.Mutex
	graded    []string
	rewritten []string
	extracted []string
}

func (m *stubModel) Classify(_ context.Context, _ research.EntityType, question, content string) (string, error) {
	m.mu.Lock()
	m.graded = append(m.graded, content)
	m.mu.Unlock()
	if m.classify == nil {
		return "yes", nil
	}
	return m.classify(question, content)
}

func (m *stubModel) Rewrite(_ context.Context, _ research.EntityType, question string) (string, error) {
	m.mu.Lock()
	m.rewritten = append(m.rewritten, question)
	m.mu.Unlock()
	if m.rewrite == nil {
		return "rewritten: " + question, nil
	}
	return m.rewrite(question)
}

func (m *stubModel) Extract(_ context.Context, _ research.EntityType, question, content string) ([]research.Entity, error) {
	m.mu.Lock()
	m.extracted = append(m.extracted, content)
	m.mu.Unlock()
	if m.extract == nil {
		return nil, nil
	}
	return m.extract(question, content)
}

func (m *stubModel) Graded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.graded...)
}

func (m *stubModel) Rewritten() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.rewritten...)
}

func (m *stubModel) Extracted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.extracted...)
}

func newEngine(search research.SearchProvider, m *stubModel, opts research.Options) *research.Engine {
	return research.NewEngine(
		search,
		research.NewGrader(m),
		research.NewRewriter(m),
		research.NewExtractor(m),
		opts,
	)
}

func docs(contents ...string) []research.Document {
	out := make([]research.Document, 0, len(contents))
	for i, c := range contents {
		out = append(out, research.Document{Content: c, SourceURL: fmt.Sprintf("https://example.com/%d", i)})
	}
	return out
}

func companies(names ...string) []research.Entity {
	out := make([]research.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, research.CompanyEntity(research.Company{Name: n}))
	}
	return out
}

type recordingObserver struct {
	mu       sync.Mutex
	nodes    []research.State
	nodeErrs []error
	searches []research.SearchOutcome
	runs     []error
}

func (o *recordingObserver) NodeFinished(s research.State, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nodes = append(o.nodes, s)
	o.nodeErrs = append(o.nodeErrs, err)
}

func (o *recordingObserver) SearchFinished(outcome research.SearchOutcome, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.searches = append(o.searches, outcome)
}

func (o *recordingObserver) RunFinished(_ research.EntityType, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, err)
}

var errModel = errors.New("model unavailable")
