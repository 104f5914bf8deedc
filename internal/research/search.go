package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shpitdev/entity-research/internal/util"
)

const defaultResultCount = 3

var errNoResults = errors.New("no results")

// FallbackSearch queries a primary backend, falls back to a secondary one, and
// finally to the synthetic no-results document. Every hit is hydrated through
// the fetcher; hits that fail to fetch are dropped.
type FallbackSearch struct {
	primary   Backend
	secondary Backend
	fetcher   Fetcher
	logger    *log.Logger
	observer  Observer
}

// SearchOption configures a FallbackSearch.
type SearchOption func(*FallbackSearch)

func WithSearchLogger(l *log.Logger) SearchOption {
	return func(s *FallbackSearch) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSearchObserver(o Observer) SearchOption {
	return func(s *FallbackSearch) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewFallbackSearch builds the search node. secondary may be nil.
func NewFallbackSearch(primary, secondary Backend, fetcher Fetcher, opts ...SearchOption) *FallbackSearch {
	s := &FallbackSearch{
		primary:   primary,
		secondary: secondary,
		fetcher:   fetcher,
		logger:    log.New(io.Discard, "", 0),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search always returns at least one document.
func (s *FallbackSearch) Search(ctx context.Context, query string, count int) []Document {
	if count <= 0 {
		count = defaultResultCount
	}

	docs, err := s.attempt(ctx, s.primary, query, count)
	if err == nil {
		s.observer.SearchFinished(SearchPrimary, len(docs))
		return docs
	}
	s.logger.Printf("run=%s search primary failed: backend=%s error=%q falling back", RunIDFromContext(ctx), backendName(s.primary), util.RedactSecrets(err.Error()))

	docs, err = s.attempt(ctx, s.secondary, query, 1)
	if err == nil {
		s.observer.SearchFinished(SearchSecondary, len(docs))
		return docs
	}
	s.logger.Printf("run=%s search secondary failed: backend=%s error=%q using synthetic document", RunIDFromContext(ctx), backendName(s.secondary), util.RedactSecrets(err.Error()))

	s.observer.SearchFinished(SearchSynthetic, 1)
	return []Document{NoResultsDocument()}
}

func (s *FallbackSearch) attempt(ctx context.Context, b Backend, query string, count int) ([]Document, error) {
	if b == nil {
		return nil, errors.New("backend not configured")
	}
	start := time.Now()
	hits, err := b.Search(ctx, query, count)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, errNoResults
	}
	docs := s.hydrate(ctx, hits)
	if len(docs) == 0 {
		return nil, fmt.Errorf("all %d results failed to fetch", len(hits))
	}
	s.logger.Printf(
		"run=%s search ok: backend=%s hits=%d documents=%d duration=%s",
		RunIDFromContext(ctx),
		b.Name(),
		len(hits),
		len(docs),
		time.Since(start).Round(time.Millisecond),
	)
	return docs, nil
}

func (s *FallbackSearch) hydrate(ctx context.Context, hits []Hit) []Document {
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		url := strings.TrimSpace(h.URL)
		if url == "" {
			continue
		}
		if s.fetcher == nil {
			docs = append(docs, Document{Content: h.Title, SourceURL: url})
			continue
		}
		content, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			s.logger.Printf("run=%s fetch failed: url=%q error=%q", RunIDFromContext(ctx), url, util.RedactSecrets(err.Error()))
			continue
		}
		docs = append(docs, Document{Content: content, SourceURL: url})
	}
	return docs
}

func backendName(b Backend) string {
	if b == nil {
		return "none"
	}
	return b.Name()
}
