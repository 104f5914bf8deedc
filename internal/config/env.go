package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// applyEnv overlays environment variables on cfg. Unset or blank variables
// leave the current value alone.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	str("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	str("GEMINI_MODEL", &cfg.Gemini.Model)
	str("GEMINI_BASE_URL", &cfg.Gemini.BaseURL)
	str("BRAVE_API_KEY", &cfg.Brave.APIKey)
	str("BRAVE_BASE_URL", &cfg.Brave.BaseURL)
	str("TAVILY_API_KEY", &cfg.Tavily.APIKey)
	str("TAVILY_BASE_URL", &cfg.Tavily.BaseURL)
	str("READER_BASE_URL", &cfg.Reader.BaseURL)
	str("APOLLO_API_KEY", &cfg.Apollo.APIKey)
	str("APOLLO_BASE_URL", &cfg.Apollo.BaseURL)
	str("DATABASE_URL", &cfg.Postgres.URL)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("METRICS_ADDR", &cfg.Metrics.Addr)

	var err error
	if cfg.Redis.TTL, err = envDuration(getenv, "REDIS_TTL", cfg.Redis.TTL); err != nil {
		return err
	}
	if cfg.Research.ResultCount, err = envInt(getenv, "RESULT_COUNT", cfg.Research.ResultCount); err != nil {
		return err
	}
	if cfg.Research.NodeTimeout, err = envDuration(getenv, "NODE_TIMEOUT", cfg.Research.NodeTimeout); err != nil {
		return err
	}
	if cfg.Research.Parallelism, err = envInt(getenv, "PARALLELISM", cfg.Research.Parallelism); err != nil {
		return err
	}
	if cfg.Worker.Workers, err = envInt(getenv, "WORKERS", cfg.Worker.Workers); err != nil {
		return err
	}
	if cfg.Worker.MaxRetries, err = envInt(getenv, "MAX_RETRIES", cfg.Worker.MaxRetries); err != nil {
		return err
	}
	if cfg.Worker.RequestTimeout, err = envDuration(getenv, "REQUEST_TIMEOUT", cfg.Worker.RequestTimeout); err != nil {
		return err
	}
	if cfg.Worker.RateLimitRPS, err = envFloat(getenv, "RATE_LIMIT_RPS", cfg.Worker.RateLimitRPS); err != nil {
		return err
	}
	if cfg.Worker.FailFast, err = envBool(getenv, "FAIL_FAST", cfg.Worker.FailFast); err != nil {
		return err
	}
	return nil
}

func envInt(getenv func(string) string, varName string, fallback int) (int, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(getenv func(string) string, varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(getenv func(string) string, varName string, fallback Duration) (Duration, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return Duration(out), nil
}

func envBool(getenv func(string) string, varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
