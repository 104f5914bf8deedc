//go:build live_e2e

package app_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shpitdev/entity-research/internal/app"
	"github.com/shpitdev/entity-research/internal/llm/gemini"
	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/websearch"
	"github.com/shpitdev/entity-research/internal/worker"
)

func TestRunBatch_LiveProviders_EndToEnd(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Fatalf("GEMINI_API_KEY is required for live_e2e tests")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		t.Fatalf("GEMINI_MODEL is required for live_e2e tests")
	}
	braveKey := os.Getenv("BRAVE_API_KEY")
	if braveKey == "" {
		t.Fatalf("BRAVE_API_KEY is required for live_e2e tests")
	}

	ctx := context.Background()

	baseDir := t.TempDir()
	if artifactDir := os.Getenv("LIVE_E2E_ARTIFACT_DIR"); artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0755); err != nil {
			t.Fatalf("create LIVE_E2E_ARTIFACT_DIR: %v", err)
		}
		baseDir = artifactDir
	}

	llm, err := gemini.New(ctx, gemini.Config{APIKey: apiKey, Model: model, BaseURL: os.Getenv("GEMINI_BASE_URL")})
	if err != nil {
		t.Fatalf("create gemini client: %v", err)
	}
	brave, err := websearch.NewBrave(websearch.BraveConfig{APIKey: braveKey, RPS: 1})
	if err != nil {
		t.Fatalf("create brave backend: %v", err)
	}
	var secondary research.Backend
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		tv, err := websearch.NewTavily(websearch.TavilyConfig{APIKey: key})
		if err != nil {
			t.Fatalf("create tavily backend: %v", err)
		}
		secondary = tv
	}
	reader, err := websearch.NewReader(websearch.ReaderConfig{})
	if err != nil {
		t.Fatalf("create reader: %v", err)
	}

	var logs bytes.Buffer
	logger := log.New(&logs, "", log.LstdFlags)
	engine := research.NewEngine(
		research.NewFallbackSearch(brave, secondary, reader, research.WithSearchLogger(logger)),
		research.NewGrader(llm),
		research.NewRewriter(llm),
		research.NewExtractor(llm),
		research.Options{ResultCount: 2, Logger: logger},
	)
	svc := app.NewService(app.Config{Engine: engine, Logger: logger})

	// Public, stable question; we only validate provider and wiring assumptions.
	questions := []string{"Largest automobile manufacturers in Japan"}
	rows, err := svc.RunBatch(ctx, questions, research.EntityCompanies, worker.Options{
		Workers:        1,
		MaxRetries:     2,
		RequestTimeout: 3 * time.Minute,
		FailurePolicy:  worker.FailurePolicyFailFast,
	})
	if err != nil {
		t.Fatalf("RunBatch failed: %v\nlogs:\n%s", err, logs.String())
	}

	outputPath := filepath.Join(baseDir, "live_rows.csv")
	f, err := os.Create(outputPath)
	if err != nil {
		t.Fatalf("create output: %v", err)
	}
	if err := app.WriteCSV(f, rows); err != nil {
		_ = f.Close()
		t.Fatalf("write output: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close output: %v", err)
	}

	b, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatalf("parse output csv: %v", err)
	}
	if len(records) < 2 {
		t.Fatalf("expected header + rows, got %d records", len(records))
	}

	wantHeader := app.Header()
	for i := range wantHeader {
		if records[0][i] != wantHeader[i] {
			t.Fatalf("header[%d]: want %q got %q", i, wantHeader[i], records[0][i])
		}
	}
	for i := 1; i < len(records); i++ {
		row := records[i]
		if row[1] != "ok" {
			t.Fatalf("row[%d] expected status ok, got %#v\nlogs:\n%s", i, row, logs.String())
		}
		if row[2] != "" {
			t.Fatalf("row[%d] expected empty error, got %#v", i, row)
		}
	}
}
