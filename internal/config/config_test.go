package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shpitdev/entity-research/internal/worker"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDecode_FileOverDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := decode([]byte(`
gemini:
  model: gemini-2.5-flash
brave:
  api_key: brave-file-key
redis:
  addr: localhost:6379
  ttl: 2h
research:
  node_timeout: 90s
  parallelism: 4
worker:
  workers: 3
`), &cfg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" || cfg.Brave.APIKey != "brave-file-key" {
		t.Fatalf("unexpected provider config: %#v", cfg)
	}
	if cfg.Redis.TTL.Std() != 2*time.Hour || cfg.Research.NodeTimeout.Std() != 90*time.Second {
		t.Fatalf("durations not parsed: ttl=%v node_timeout=%v", cfg.Redis.TTL.Std(), cfg.Research.NodeTimeout.Std())
	}
	if cfg.Worker.Workers != 3 || cfg.Worker.MaxRetries != 3 {
		t.Fatalf("defaults lost: %#v", cfg.Worker)
	}
	if cfg.Research.ResultCount != 3 || cfg.Brave.RPS != 1 {
		t.Fatalf("defaults lost: %#v", cfg)
	}
}

func TestDecode_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key":  "gemini:\n  modle: x\n",
		"bad duration": "research:\n  node_timeout: soon\n",
		"wrong type":   "worker:\n  workers: many\n",
	}
	for name, doc := range tests {
		cfg := Default()
		if err := decode([]byte(doc), &cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	cfg := Default()
	if err := decode(nil, &cfg); err != nil {
		t.Fatalf("empty file should be accepted: %v", err)
	}
}

func TestApplyEnv_OverridesFile(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Brave.APIKey = "from-file"
	err := applyEnv(&cfg, mapEnv(map[string]string{
		"BRAVE_API_KEY":  " from-env ",
		"GEMINI_API_KEY": "g",
		"RESULT_COUNT":   "5",
		"NODE_TIMEOUT":   "45s",
		"FAIL_FAST":      "true",
		"RATE_LIMIT_RPS": "2.5",
		"DATABASE_URL":   "postgres://localhost/research",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Brave.APIKey != "from-env" || cfg.Gemini.APIKey != "g" {
		t.Fatalf("strings not applied: %#v", cfg)
	}
	if cfg.Research.ResultCount != 5 || cfg.Research.NodeTimeout.Std() != 45*time.Second {
		t.Fatalf("research not applied: %#v", cfg.Research)
	}
	if !cfg.Worker.FailFast || cfg.Worker.RateLimitRPS != 2.5 {
		t.Fatalf("worker not applied: %#v", cfg.Worker)
	}
	if cfg.Postgres.URL != "postgres://localhost/research" {
		t.Fatalf("postgres not applied: %#v", cfg.Postgres)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	t.Parallel()

	for name, val := range map[string]string{
		"WORKERS":        "ten",
		"RATE_LIMIT_RPS": "fast",
		"REDIS_TTL":      "1 day",
		"FAIL_FAST":      "maybe",
	} {
		cfg := Default()
		err := applyEnv(&cfg, mapEnv(map[string]string{name: val}))
		if err == nil || !strings.Contains(err.Error(), name) {
			t.Fatalf("%s=%q: expected error naming the variable, got %v", name, val, err)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := cfg.Validate(RequireResearch, RequireApollo)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, key := range []string{"GEMINI_API_KEY", "GEMINI_MODEL", "BRAVE_API_KEY", "APOLLO_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q missing %s", err, key)
		}
	}

	cfg.Gemini = Gemini{APIKey: "k", Model: "m"}
	cfg.Brave.APIKey = "b"
	if err := cfg.Validate(RequireResearch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(RequireApollo); err == nil {
		t.Fatalf("expected apollo key error")
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.yaml")
	if err := os.WriteFile(path, []byte("apollo:\n  api_key: from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("APOLLO_API_KEY", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Apollo.APIKey != "from-file" {
		t.Fatalf("got %q", cfg.Apollo.APIKey)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestWorkerOptions(t *testing.T) {
	t.Parallel()

	w := Default().Worker
	w.FailFast = true
	opts := w.Options()
	if opts.Workers != 10 || opts.MaxRetries != 3 || opts.RequestTimeout != 5*time.Minute {
		t.Fatalf("unexpected options: %#v", opts)
	}
	if opts.FailurePolicy != worker.FailurePolicyFailFast {
		t.Fatalf("fail fast not mapped")
	}
	if Default().Worker.Options().FailurePolicy != worker.FailurePolicyPartialOutput {
		t.Fatalf("default policy should be partial output")
	}
}
