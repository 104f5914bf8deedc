package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/worker"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "apollo-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearchCompany_FirstOrganization(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/mixed_companies/search" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "apollo-key" {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if body["q_organization_name"] != "Acme Forge" || body["page"] != float64(1) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if _, ok := body["organization_not_locations"]; ok {
			http.Error(w, "empty filters must be omitted", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"organizations":[
			{"id":"org-1","name":"Acme Forge","founded_year":1952,"linkedin_url":"https://linkedin.com/company/acme","website_url":"https://acme.example"},
			{"id":"org-2","name":"Acme Forge Holdings"}
		]}`))
	})

	got, err := c.SearchCompany(context.Background(), CompanyQuery{Name: "Acme Forge", Locations: []string{"Ohio, US"}})
	if err != nil {
		t.Fatalf("SearchCompany: %v", err)
	}
	want := CompanyRecord{
		CompanyID:   "org-1",
		Name:        "Acme Forge",
		FoundedYear: 1952,
		LinkedInURL: "https://linkedin.com/company/acme",
		WebsiteURL:  "https://acme.example",
	}
	if got == nil || *got != want {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestSearchCompany_NoMatch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"organizations":[]}`))
	})
	got, err := c.SearchCompany(context.Background(), CompanyQuery{Name: "Nobody"})
	if err != nil {
		t.Fatalf("SearchCompany: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}

func TestSearchPeople(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/mixed_people/search" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["q_organization_domains"] != "acme.example\nforge.example" || body["per_page"] != float64(100) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"people":[{
			"id":"p-1","first_name":"Dana","last_name":"Reyes","title":"VP Operations",
			"organization":{"id":"org-1","name":"Acme Forge","linkedin_url":"https://linkedin.com/company/acme"},
			"employment_history":[
				{"title":"VP Operations","organization_name":"Acme Forge","current":true},
				{"title":"Plant Manager","organization_name":"Borealis Castings"}
			]
		}]}`))
	})

	got, err := c.SearchPeople(context.Background(), PeopleQuery{
		PersonTitles:        []string{"vp operations"},
		OrganizationDomains: []string{"acme.example", "forge.example"},
	})
	if err != nil {
		t.Fatalf("SearchPeople: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 person, got %d", len(got))
	}
	p := got[0]
	if p.PersonID != "p-1" || p.Name() != "Dana Reyes" || p.Organization.Name != "Acme Forge" {
		t.Fatalf("unexpected person: %#v", p)
	}
	if len(p.EmploymentHistory) != 2 || p.EmploymentHistory[0].OrganizationName != "Acme Forge" || !p.EmploymentHistory[0].Current {
		t.Fatalf("employment history order lost: %#v", p.EmploymentHistory)
	}
}

func TestHTTPError_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
		wantInMessage string
	}{
		{name: "unauthorized", status: 401, body: `{"error":"invalid api key","error_code":"INVALID_KEY"}`, wantInMessage: "code=INVALID_KEY"},
		{name: "rate_limited", status: 429, body: `{"error":"too many requests"}`, wantTransient: true},
		{name: "bad_gateway", status: 502, body: "<html>bad gateway</html>", wantTransient: true, wantInMessage: "body=<html>bad gateway</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SearchCompany(context.Background(), CompanyQuery{Name: "x"})
			var he *HTTPError
			if !errors.As(err, &he) || he.StatusCode != tt.status {
				t.Fatalf("expected HTTPError %d, got %v", tt.status, err)
			}
			if got := worker.IsTransient(err); got != tt.wantTransient {
				t.Fatalf("transient=%v want=%v", got, tt.wantTransient)
			}
			if tt.wantInMessage != "" && !strings.Contains(err.Error(), tt.wantInMessage) {
				t.Fatalf("error %q missing %q", err.Error(), tt.wantInMessage)
			}
		})
	}
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeSearcher) SearchCompany(_ context.Context, q CompanyQuery) (*CompanyRecord, error) {
	f.mu.Lock()
	f.calls[q.Name]++
	n := f.calls[q.Name]
	f.mu.Unlock()

	switch q.Name {
	case "Broken":
		return nil, errors.New("invalid filter")
	case "Flaky":
		if n == 1 {
			return nil, &worker.TransientError{Err: errors.New("503")}
		}
	case "Unknown":
		return nil, nil
	}
	return &CompanyRecord{CompanyID: "id-" + q.Name, Name: q.Name}, nil
}

func TestResolveCompanies_SkipsFailures(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{calls: map[string]int{}}
	var logs bytes.Buffer
	in := []research.Company{
		{Name: "Acme"},
		{Name: "Broken"},
		{Name: "  "},
		{Name: "Flaky"},
		{Name: "Unknown"},
		{Name: "Borealis"},
	}

	got, err := ResolveCompanies(context.Background(), s, in, worker.Options{
		Workers:        3,
		MaxRetries:     2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     time.Millisecond,
		FailurePolicy:  worker.FailurePolicyFailFast,
	}, log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("ResolveCompanies: %v", err)
	}

	var names []string
	for _, r := range got {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "Acme,Flaky,Borealis" {
		t.Fatalf("unexpected records: %v", names)
	}
	if s.calls["Flaky"] != 2 {
		t.Fatalf("expected Flaky to be retried once, calls=%d", s.calls["Flaky"])
	}
	if !strings.Contains(logs.String(), `company lookup failed: name="Broken"`) {
		t.Fatalf("missing failure log: %s", logs.String())
	}
}

func TestResolveCompanies_TruncatedResponseRetriedOnce(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 512\r\n\r\n{\"organizations\":[")
		_ = buf.Flush()
		_ = conn.Close()
	})

	_, err := c.SearchCompany(context.Background(), CompanyQuery{Name: "Acme"})
	var lte *worker.LimitedTransientError
	if !errors.As(err, &lte) || lte.MaxExtraRetries() != 1 {
		t.Fatalf("expected limited transient error, got %T %v", err, err)
	}

	mu.Lock()
	calls = 0
	mu.Unlock()
	var logs bytes.Buffer
	got, err := ResolveCompanies(context.Background(), c, []research.Company{{Name: "Acme"}}, worker.Options{
		Workers:        1,
		MaxRetries:     5,
		BackoffInitial: time.Millisecond,
		BackoffMax:     time.Millisecond,
	}, log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("ResolveCompanies: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %#v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected 2 calls (1 initial + 1 retry), got %d", calls)
	}
	if !strings.Contains(logs.String(), `company lookup failed: name="Acme" attempts=2`) {
		t.Fatalf("missing failure log: %s", logs.String())
	}
}

func TestQueryFromCompany(t *testing.T) {
	t.Parallel()

	q := QueryFromCompany(research.Company{
		Name:           " Acme ",
		EmployeeRanges: []string{"1,100"},
		Locations:      []string{"Virginia, US"},
		NotLocations:   []string{"India"},
		KeywordTags:    []string{"manufacturing"},
	})
	if q.Name != "Acme" || q.EmployeeRanges[0] != "1,100" || q.NotLocations[0] != "India" || q.KeywordTags[0] != "manufacturing" {
		t.Fatalf("unexpected query: %#v", q)
	}
}
