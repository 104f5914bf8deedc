package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shpitdev/entity-research/internal/apollo"
	"github.com/shpitdev/entity-research/internal/app"
	"github.com/shpitdev/entity-research/internal/cache"
	"github.com/shpitdev/entity-research/internal/config"
	"github.com/shpitdev/entity-research/internal/llm/gemini"
	"github.com/shpitdev/entity-research/internal/metrics"
	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/sink"
	"github.com/shpitdev/entity-research/internal/util"
	"github.com/shpitdev/entity-research/internal/websearch"
)

// stack owns everything a command wires up. Close releases it in reverse
// order.
type stack struct {
	logger  *log.Logger
	metrics *metrics.Metrics
	service *app.Service
	closers []func()
}

func (rt *stack) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// newStack builds the service for one command. The research engine is
// only built (and its keys only required) when withEngine is set.
func newStack(ctx context.Context, cfg config.Config, withEngine bool, csvDir string, logOut io.Writer) (*stack, error) {
	rt := &stack{
		logger:  log.New(logOut, "", log.LstdFlags),
		metrics: metrics.New(),
	}
	fail := func(err error) (*stack, error) {
		rt.Close()
		return nil, err
	}

	var engine app.Runner
	if withEngine {
		e, err := rt.buildEngine(ctx, cfg)
		if err != nil {
			return fail(configError(err))
		}
		engine = e
	}

	var ap app.Apollo
	if cfg.Apollo.APIKey != "" {
		c, err := apollo.New(apollo.Config{APIKey: cfg.Apollo.APIKey, BaseURL: cfg.Apollo.BaseURL})
		if err != nil {
			return fail(configError(err))
		}
		ap = c
	}

	sk, err := rt.buildSink(ctx, cfg, csvDir)
	if err != nil {
		return fail(err)
	}

	if cfg.Metrics.Addr != "" {
		if err := rt.serveMetrics(cfg.Metrics.Addr); err != nil {
			return fail(configError(err))
		}
	}

	rt.service = app.NewService(app.Config{
		Engine:  engine,
		Apollo:  ap,
		Sink:    sk,
		Logger:  rt.logger,
		Resolve: cfg.Worker.Options(),
	})
	return rt, nil
}

func (rt *stack) buildEngine(ctx context.Context, cfg config.Config) (*research.Engine, error) {
	model, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	brave, err := websearch.NewBrave(websearch.BraveConfig{
		APIKey:  cfg.Brave.APIKey,
		BaseURL: cfg.Brave.BaseURL,
		RPS:     cfg.Brave.RPS,
	})
	if err != nil {
		return nil, err
	}

	var secondary research.Backend
	if cfg.Tavily.APIKey != "" {
		tavily, err := websearch.NewTavily(websearch.TavilyConfig{
			APIKey:      cfg.Tavily.APIKey,
			BaseURL:     cfg.Tavily.BaseURL,
			SearchDepth: cfg.Tavily.SearchDepth,
		})
		if err != nil {
			return nil, err
		}
		secondary = tavily
	}

	reader, err := websearch.NewReader(websearch.ReaderConfig{
		BaseURL:  cfg.Reader.BaseURL,
		MaxBytes: cfg.Reader.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	var fetcher research.Fetcher = reader
	if cfg.Redis.Addr != "" {
		cached := cache.NewRedisFetcher(ctx, reader, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL.Std(),
			Logger:   rt.logger,
		})
		rt.closers = append(rt.closers, func() { _ = cached.Close() })
		fetcher = cached
	}

	search := research.NewFallbackSearch(brave, secondary, fetcher,
		research.WithSearchLogger(rt.logger),
		research.WithSearchObserver(rt.metrics),
	)
	return research.NewEngine(
		search,
		research.NewGrader(model),
		research.NewRewriter(model),
		research.NewExtractor(model),
		research.Options{
			ResultCount: cfg.Research.ResultCount,
			NodeTimeout: cfg.Research.NodeTimeout.Std(),
			Parallelism: cfg.Research.Parallelism,
			Logger:      rt.logger,
			Observer:    rt.metrics,
		},
	), nil
}

// buildSink prefers Postgres, then CSV files, then discarding.
func (rt *stack) buildSink(ctx context.Context, cfg config.Config, csvDir string) (sink.Sink, error) {
	if cfg.Postgres.URL != "" {
		pg, err := sink.OpenPostgres(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, runError("postgres connect", err)
		}
		rt.closers = append(rt.closers, pg.Close)
		if cfg.Postgres.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, runError("postgres schema", err)
			}
		}
		rt.logger.Printf("sink: postgres")
		return pg, nil
	}

	if csvDir != "" {
		if err := os.MkdirAll(csvDir, 0o755); err != nil {
			return nil, runError("csv sink", err)
		}
		companies, err := os.Create(filepath.Join(csvDir, "companies.csv"))
		if err != nil {
			return nil, runError("csv sink", err)
		}
		rt.closers = append(rt.closers, func() { _ = companies.Close() })
		people, err := os.Create(filepath.Join(csvDir, "people.csv"))
		if err != nil {
			return nil, runError("csv sink", err)
		}
		rt.closers = append(rt.closers, func() { _ = people.Close() })
		rt.logger.Printf("sink: csv dir=%s", csvDir)
		return sink.NewCSV(companies, people), nil
	}

	return sink.Discard{}, nil
}

func (rt *stack) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Printf("metrics server error: %s", util.RedactSecrets(err.Error()))
		}
	}()
	rt.logger.Printf("metrics listening: addr=%s", ln.Addr())

	rt.closers = append(rt.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return nil
}
