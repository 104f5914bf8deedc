package apollo

import (
	"context"
	"io"
	"log"

	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/util"
	"github.com/shpitdev/entity-research/internal/worker"
)

// CompanySearcher is satisfied by *Client.
type CompanySearcher interface {
	SearchCompany(ctx context.Context, q CompanyQuery) (*CompanyRecord, error)
}

// ResolveCompanies looks every extracted company up concurrently. Lookups
// that fail (after the pool's retries) or match nothing are logged and
// skipped; the returned records keep input order.
func ResolveCompanies(ctx context.Context, searcher CompanySearcher, companies []research.Company, opts worker.Options, logger *log.Logger) ([]CompanyRecord, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	runID := research.RunIDFromContext(ctx)

	queries := make([]CompanyQuery, 0, len(companies))
	for _, c := range companies {
		q := QueryFromCompany(c)
		if q.Name == "" {
			continue
		}
		queries = append(queries, q)
	}
	if len(queries) == 0 {
		return []CompanyRecord{}, nil
	}

	opts.FailurePolicy = worker.FailurePolicyPartialOutput
	results, err := worker.ProcessAll(ctx, queries, searcher.SearchCompany, opts)
	if err != nil {
		return nil, err
	}

	out := make([]CompanyRecord, 0, len(results))
	for _, res := range results {
		switch {
		case res.Err != nil:
			logger.Printf("run=%s company lookup failed: name=%q attempts=%d error=%q", runID, res.Input.Name, res.Attempts, util.RedactSecrets(res.Err.Error()))
		case res.Output == nil:
			logger.Printf("run=%s company lookup: name=%q no match", runID, res.Input.Name)
		default:
			out = append(out, *res.Output)
		}
	}
	return out, nil
}
