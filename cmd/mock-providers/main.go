package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shpitdev/entity-research/internal/mockproviders"
)

func main() {
	addr := defaultString("MOCK_PROVIDERS_ADDR", ":8080")
	fixturesPath := defaultString("MOCK_PROVIDERS_FIXTURES", "")
	apiKey := defaultString("MOCK_PROVIDERS_API_KEY", "")
	failures := defaultString("MOCK_PROVIDERS_FAIL", "")

	fs := flag.NewFlagSet("mock-providers", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixturesPath, "fixtures", fixturesPath, "YAML fixtures file (search results, pages, Apollo records, model answers)")
	fs.StringVar(&apiKey, "api-key", apiKey, "Reject requests that do not present this key")
	fs.StringVar(&failures, "fail", failures, `Comma-separated route:status failures served first, e.g. "brave:503,model:429" (also supports env: MOCK_PROVIDERS_FAIL)`)
	_ = fs.Parse(os.Args[1:])

	var f mockproviders.Fixtures
	if fixturesPath != "" {
		var err error
		if f, err = mockproviders.LoadFixtures(fixturesPath); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixtures error: %v\n", err)
			os.Exit(2)
		}
	}

	srv := mockproviders.New(f)
	if apiKey != "" {
		srv.RequireAPIKey(apiKey)
	}
	for _, entry := range splitCSV(failures) {
		route, code, err := parseFailure(entry)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid -fail entry: %v\n", err)
			os.Exit(2)
		}
		srv.FailNext(route, code)
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-providers listening on %s (fixtures=%q auth=%t)\n", addr, fixturesPath, apiKey != "")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func parseFailure(s string) (string, int, error) {
	route, codeRaw, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(route) == "" {
		return "", 0, fmt.Errorf("%q: want route:status", s)
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeRaw))
	if err != nil || code < 400 || code > 599 {
		return "", 0, fmt.Errorf("%q: status must be 400-599", s)
	}
	return strings.TrimSpace(route), code, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
