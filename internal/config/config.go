// Package config loads settings from an optional YAML file and the
// environment. Environment variables override the file; command-line flags
// override both and are applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shpitdev/entity-research/internal/worker"
)

type Config struct {
	Gemini   Gemini   `yaml:"gemini"`
	Brave    Brave    `yaml:"brave"`
	Tavily   Tavily   `yaml:"tavily"`
	Reader   Reader   `yaml:"reader"`
	Apollo   Apollo   `yaml:"apollo"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Research Research `yaml:"research"`
	Worker   Worker   `yaml:"worker"`
	Metrics  Metrics  `yaml:"metrics"`
}

type Gemini struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type Brave struct {
	APIKey  string  `yaml:"api_key"`
	BaseURL string  `yaml:"base_url"`
	RPS     float64 `yaml:"rps"`
}

type Tavily struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	SearchDepth string `yaml:"search_depth"`
}

type Reader struct {
	BaseURL  string `yaml:"base_url"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type Apollo struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type Postgres struct {
	URL          string `yaml:"url"`
	EnsureSchema bool   `yaml:"ensure_schema"`
}

type Redis struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

type Research struct {
	ResultCount int      `yaml:"result_count"`
	NodeTimeout Duration `yaml:"node_timeout"`
	Parallelism int      `yaml:"parallelism"`
}

type Worker struct {
	Workers        int      `yaml:"workers"`
	MaxRetries     int      `yaml:"max_retries"`
	RequestTimeout Duration `yaml:"request_timeout"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	FailFast       bool     `yaml:"fail_fast"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

// Duration accepts Go duration strings ("90s", "2m") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, raw, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Options maps the worker section onto the pool's options.
func (w Worker) Options() worker.Options {
	policy := worker.FailurePolicyPartialOutput
	if w.FailFast {
		policy = worker.FailurePolicyFailFast
	}
	return worker.Options{
		Workers:           w.Workers,
		MaxRetries:        w.MaxRetries,
		RequestTimeout:    w.RequestTimeout.Std(),
		RateLimitRPS:      w.RateLimitRPS,
		FailurePolicy:     policy,
		BackoffInitial:    200 * time.Millisecond,
		BackoffMax:        2 * time.Second,
		BackoffJitterFrac: 0.2,
	}
}

// Default returns the settings used when neither file nor environment says
// otherwise.
func Default() Config {
	return Config{
		Brave:    Brave{RPS: 1},
		Tavily:   Tavily{SearchDepth: "basic"},
		Redis:    Redis{TTL: Duration(24 * time.Hour)},
		Research: Research{ResultCount: 3, Parallelism: 1},
		Worker: Worker{
			Workers:        10,
			MaxRetries:     3,
			RequestTimeout: Duration(5 * time.Minute),
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the process
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decode(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	return nil
}

// Requirement names a set of keys a command needs.
type Requirement int

const (
	RequireResearch Requirement = iota
	RequireApollo
)

// Validate reports every missing key for the given requirements at once.
func (c Config) Validate(reqs ...Requirement) error {
	var missing []string
	for _, r := range reqs {
		switch r {
		case RequireResearch:
			if strings.TrimSpace(c.Gemini.APIKey) == "" {
				missing = append(missing, "GEMINI_API_KEY")
			}
			if strings.TrimSpace(c.Gemini.Model) == "" {
				missing = append(missing, "GEMINI_MODEL")
			}
			if strings.TrimSpace(c.Brave.APIKey) == "" {
				missing = append(missing, "BRAVE_API_KEY")
			}
		case RequireApollo:
			if strings.TrimSpace(c.Apollo.APIKey) == "" {
				missing = append(missing, "APOLLO_API_KEY")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Research.ResultCount < 0 {
		return fmt.Errorf("invalid RESULT_COUNT=%d", c.Research.ResultCount)
	}
	if c.Worker.Workers < 0 || c.Worker.MaxRetries < 0 {
		return fmt.Errorf("invalid worker settings: workers=%d max_retries=%d", c.Worker.Workers, c.Worker.MaxRetries)
	}
	return nil
}
