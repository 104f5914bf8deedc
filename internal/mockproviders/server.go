// Package mockproviders serves a minimal stand-in for every upstream the
// researcher talks to: Brave and Tavily search, the page reader, Apollo and
// the Gemini generateContent endpoint. Point each client's base URL at the
// server.
package mockproviders

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

type Server struct {
	mu       sync.Mutex
	calls    []Call
	fixtures Fixtures

	apiKey string
	// failures queues status codes to return, per route, before serving
	// normally.
	failures map[string][]int
}

// New constructs a server answering from f.
func New(f Fixtures) *Server {
	return &Server{fixtures: f, failures: make(map[string][]int)}
}

// RequireAPIKey enforces that every request carries key in the header (or
// body field, for Tavily) the real provider uses. Empty disables the check.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = strings.TrimSpace(key)
}

// FailNext makes the next len(codes) requests to route answer with the given
// status codes. Routes are "brave", "tavily", "reader", "apollo" and "model".
func (s *Server) FailNext(route string, codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], codes...)
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns an http.Handler that serves the mock API.
//
// Routing is done by hand: reader paths embed a full URL ("/r/https://...")
// which http.ServeMux would clean and redirect.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.recordCall(r)
		path := r.URL.Path
		switch {
		case path == "/res/v1/web/search":
			s.serve(w, r, "brave", http.MethodGet, "X-Subscription-Token", s.handleBrave)
		case path == "/search":
			s.serve(w, r, "tavily", http.MethodPost, "", s.handleTavily)
		case strings.HasPrefix(path, "/r/"):
			s.serve(w, r, "reader", http.MethodGet, "", s.handleReader)
		case path == "/api/v1/mixed_companies/search":
			s.serve(w, r, "apollo", http.MethodPost, "X-Api-Key", s.handleCompanies)
		case path == "/v1/mixed_people/search":
			s.serve(w, r, "apollo", http.MethodPost, "X-Api-Key", s.handlePeople)
		case strings.HasSuffix(path, ":generateContent"):
			s.serve(w, r, "model", http.MethodPost, "X-Goog-Api-Key", s.handleGenerate)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *Server) recordCall(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, route, method, keyHeader string, h http.HandlerFunc) {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if code, ok := s.popFailure(route); ok {
		writeJSON(w, code, map[string]any{"error": fmt.Sprintf("injected %s failure", route)})
		return
	}
	s.mu.Lock()
	key := s.apiKey
	s.mu.Unlock()
	if key != "" && keyHeader != "" && r.Header.Get(keyHeader) != key {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid api key"})
		return
	}
	h(w, r)
}

func (s *Server) popFailure(route string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.failures[route]
	if len(q) == 0 {
		return 0, false
	}
	s.failures[route] = q[1:]
	return q[0], true
}

func (s *Server) resultsFor(table map[string][]string, query string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if urls, ok := table[query]; ok {
		return urls
	}
	return table["*"]
}

func (s *Server) handleBrave(w http.ResponseWriter, r *http.Request) {
	urls := s.resultsFor(s.fixtures.Search, r.URL.Query().Get("q"))
	if n := atoiOr(r.URL.Query().Get("count"), len(urls)); n < len(urls) {
		urls = urls[:n]
	}

	type result struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	results := make([]result, 0, len(urls))
	for _, u := range urls {
		results = append(results, result{Title: u, URL: u})
	}
	writeJSON(w, http.StatusOK, map[string]any{"web": map[string]any{"results": results}})
}

func (s *Server) handleTavily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey     string `json:"api_key"`
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	key := s.apiKey
	s.mu.Unlock()
	if key != "" && req.APIKey != key {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": map[string]any{"error": "invalid api key"}})
		return
	}

	table := s.fixtures.Tavily
	if table == nil {
		table = s.fixtures.Search
	}
	urls := s.resultsFor(table, req.Query)
	if req.MaxResults > 0 && req.MaxResults < len(urls) {
		urls = urls[:req.MaxResults]
	}
	results := make([]map[string]any, 0, len(urls))
	for _, u := range urls {
		results = append(results, map[string]any{"title": u, "url": u, "content": ""})
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results})
}

func (s *Server) handleReader(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimPrefix(r.URL.Path, "/r/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	s.mu.Lock()
	page, ok := s.fixtures.Pages[target]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"q_organization_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "invalid json"})
		return
	}
	name := strings.ToLower(strings.TrimSpace(req.Name))

	out := []Organization{}
	s.mu.Lock()
	for _, o := range s.fixtures.Companies {
		if name != "" && strings.Contains(strings.ToLower(o.Name), name) {
			out = append(out, o)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonTitles []string `json:"person_titles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "invalid json"})
		return
	}

	out := []Person{}
	s.mu.Lock()
	for _, p := range s.fixtures.People {
		if len(req.PersonTitles) == 0 || titleMatches(p.Title, req.PersonTitles) {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"people": out})
}

func titleMatches(title string, want []string) bool {
	title = strings.ToLower(title)
	for _, w := range want {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(title, w) {
			return true
		}
	}
	return false
}

// generateRequest is the slice of the generateContent body the mock needs.
type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseSchema struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"responseSchema"`
	} `json:"generationConfig"`
}

func (r generateRequest) prompt() string {
	var b strings.Builder
	for _, c := range r.Contents {
		for _, p := range c.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": "invalid json"}})
		return
	}
	props := req.GenerationConfig.ResponseSchema.Properties

	s.mu.Lock()
	model := s.fixtures.Model
	s.mu.Unlock()

	var answer any
	switch {
	case props["binary_score"] != nil:
		score := model.Grade
		if score == "" {
			score = "yes"
		}
		answer = map[string]any{"binary_score": score}
	case props["question"] != nil:
		q := model.Rewrite
		if q == "" {
			q = questionFromPrompt(req.prompt()) + " list"
		}
		answer = map[string]any{"question": q}
	case props["companies"] != nil:
		answer = map[string]any{"companies": nonNil(model.Extract["companies"])}
	case props["people"] != nil:
		answer = map[string]any{"people": nonNil(model.Extract["people"])}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": "unknown response schema"}})
		return
	}

	text, _ := json.Marshal(answer)
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": string(text)}},
			},
			"finishReason": "STOP",
		}},
	})
}

// questionFromPrompt returns the last non-empty prompt line, which is where
// the rewrite prompt puts the question, minus its "...question:" label.
func questionFromPrompt(prompt string) string {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			continue
		}
		if label, rest, ok := strings.Cut(l, ":"); ok && strings.Contains(strings.ToLower(label), "question") {
			l = strings.TrimSpace(rest)
		}
		return l
	}
	return ""
}

func nonNil(v []map[string]any) []map[string]any {
	if v == nil {
		return []map[string]any{}
	}
	return v
}

func atoiOr(s string, fallback int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
