package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/worker"
)

// RunBatch researches every question as an independent run on the worker
// pool. Transient run failures (provider throttling, node timeouts) retry
// the whole run. Under FailurePolicyPartialOutput a failed run becomes an
// error row; under FailurePolicyFailFast the first failure aborts the batch.
//
// Rows keep input order.
func (s *Service) RunBatch(ctx context.Context, questions []string, entityType research.EntityType, opts worker.Options) ([]Row, error) {
	if s.engine == nil {
		return nil, ErrEngineNotConfigured
	}
	batchID := uuid.NewString()
	logf := func(format string, args ...any) {
		s.logger.Printf("batch=%s "+format, append([]any{batchID}, args...)...)
	}
	start := time.Now()
	logf(
		"batch start: questions=%d entityType=%s workers=%d maxRetries=%d timeout=%s rateLimitRPS=%g failFast=%t",
		len(questions),
		entityType,
		opts.Workers,
		opts.MaxRetries,
		opts.RequestTimeout,
		opts.RateLimitRPS,
		opts.FailurePolicy == worker.FailurePolicyFailFast,
	)

	run := func(ctx context.Context, question string) (research.Result, error) {
		return s.engine.Run(ctx, question, entityType)
	}

	completed := 0
	results, err := worker.ProcessAllWithCallback(ctx, questions, run, func(r worker.Result[string, research.Result]) error {
		completed++
		status := "ok"
		if r.Err != nil {
			status = "error"
		}
		logf(
			"batch question done: question=%q run=%s status=%s attempts=%d entities=%d completed=%d/%d elapsed=%s",
			strings.TrimSpace(r.Input),
			r.Output.RunID,
			status,
			r.Attempts,
			len(r.Output.Entities),
			completed,
			len(questions),
			time.Since(start).Round(time.Millisecond),
		)
		return nil
	}, opts)
	if err != nil {
		return nil, err
	}

	var rows []Row
	okRuns, errorRuns := 0, 0
	for _, r := range results {
		if r.Err != nil {
			errorRuns++
		} else {
			okRuns++
		}
		rows = append(rows, rowsForRun(r.Input, entityType, r.Output.Entities, r.Err)...)
	}
	logf(
		"batch complete: runs=%d ok=%d error=%d rows=%d duration=%s",
		len(results),
		okRuns,
		errorRuns,
		len(rows),
		time.Since(start).Round(time.Millisecond),
	)
	return rows, nil
}
