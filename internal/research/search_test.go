package research_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/entity-research/internal/research"
)

func TestFallbackSearch_PrimarySuccess(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{hits: hits("https://a.example", "https://b.example")}}}
	secondary := &fakeBackend{name: "tavily"}
	obs := &recordingObserver{}
	s := research.NewFallbackSearch(primary, secondary, &fakeFetcher{}, research.WithSearchObserver(obs))

	got := s.Search(context.Background(), "machine shops in Ohio", 5)

	require.Len(t, got, 2)
	assert.Equal(t, "page body of https://a.example", got[0].Content)
	assert.Equal(t, "https://b.example", got[1].SourceURL)
	assert.Equal(t, []backendCall{{Query: "machine shops in Ohio", Count: 5}}, primary.Calls())
	assert.Empty(t, secondary.Calls())
	assert.Equal(t, []research.SearchOutcome{research.SearchPrimary}, obs.searches)
}

func TestFallbackSearch_SecondaryUsesSingleResult(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{err: errors.New("429 too many requests")}}}
	secondary := &fakeBackend{name: "tavily", responses: []backendResponse{{hits: hits("https://c.example")}}}
	s := research.NewFallbackSearch(primary, secondary, &fakeFetcher{})

	got := s.Search(context.Background(), "machine shops in Ohio", 3)

	require.Len(t, got, 1)
	assert.Equal(t, "https://c.example", got[0].SourceURL)
	assert.Equal(t, []backendCall{{Query: "machine shops in Ohio", Count: 1}}, secondary.Calls())
}

func TestFallbackSearch_EmptyPrimaryFallsBack(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{hits: nil}}}
	secondary := &fakeBackend{name: "tavily", responses: []backendResponse{{hits: hits("https://c.example")}}}
	s := research.NewFallbackSearch(primary, secondary, &fakeFetcher{})

	got := s.Search(context.Background(), "q", 3)
	require.Len(t, got, 1)
	assert.Len(t, secondary.Calls(), 1)
}

func TestFallbackSearch_NeverEmpty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		primary   research.Backend
		secondary research.Backend
	}{
		{
			name:      "both fail",
			primary:   &fakeBackend{name: "brave", responses: []backendResponse{{err: errors.New("boom")}}},
			secondary: &fakeBackend{name: "tavily", responses: []backendResponse{{err: errors.New("boom")}}},
		},
		{
			name:      "both empty",
			primary:   &fakeBackend{name: "brave"},
			secondary: &fakeBackend{name: "tavily"},
		},
		{
			name:    "no secondary configured",
			primary: &fakeBackend{name: "brave", responses: []backendResponse{{err: errors.New("boom")}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			obs := &recordingObserver{}
			s := research.NewFallbackSearch(tc.primary, tc.secondary, &fakeFetcher{}, research.WithSearchObserver(obs))

			got := s.Search(context.Background(), "nothing matches this", 3)

			require.Len(t, got, 1)
			assert.Equal(t, research.NoResultsDocument(), got[0])
			assert.Equal(t, research.NoResultsContent, got[0].Content)
			assert.Equal(t, []research.SearchOutcome{research.SearchSynthetic}, obs.searches)
		})
	}
}

func TestFallbackSearch_FetchFailureSkipsOnlyThatURL(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{hits: hits("https://a.example", "https://broken.example", "https://c.example")}}}
	fetcher := &fakeFetcher{fail: map[string]bool{"https://broken.example": true}}
	var logs bytes.Buffer
	s := research.NewFallbackSearch(primary, nil, fetcher, research.WithSearchLogger(log.New(&logs, "", 0)))

	got := s.Search(context.Background(), "q", 3)

	require.Len(t, got, 2)
	assert.Equal(t, "https://a.example", got[0].SourceURL)
	assert.Equal(t, "https://c.example", got[1].SourceURL)
	assert.Len(t, fetcher.fetched, 3)
	assert.Contains(t, logs.String(), "fetch failed")
}

func TestFallbackSearch_AllFetchesFailingFallsBack(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{hits: hits("https://broken.example")}}}
	secondary := &fakeBackend{name: "tavily", responses: []backendResponse{{hits: hits("https://c.example")}}}
	fetcher := &fakeFetcher{fail: map[string]bool{"https://broken.example": true}}
	s := research.NewFallbackSearch(primary, secondary, fetcher)

	got := s.Search(context.Background(), "q", 3)

	require.Len(t, got, 1)
	assert.Equal(t, "https://c.example", got[0].SourceURL)
}

func TestFallbackSearch_DefaultCount(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{hits: hits("https://a.example")}}}
	s := research.NewFallbackSearch(primary, nil, nil)

	got := s.Search(context.Background(), "q", 0)

	require.Len(t, got, 1)
	assert.Equal(t, "title of https://a.example", got[0].Content)
	assert.Equal(t, 3, primary.Calls()[0].Count)
}

func TestFallbackSearch_LogsAreRedacted(t *testing.T) {
	t.Parallel()

	primary := &fakeBackend{name: "brave", responses: []backendResponse{{err: errors.New(`request failed: api_key=tvly-secret123`)}}}
	var logs bytes.Buffer
	s := research.NewFallbackSearch(primary, nil, nil, research.WithSearchLogger(log.New(&logs, "", 0)))

	_ = s.Search(context.Background(), "q", 3)

	assert.NotContains(t, logs.String(), "tvly-secret123")
	assert.Contains(t, logs.String(), "search primary failed")
}
