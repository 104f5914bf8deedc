package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shpitdev/entity-research/internal/config"
)

// rootFlags are shared by every command. Flags override the config file and
// the environment, but only when set explicitly.
type rootFlags struct {
	configPath string
	csvDir     string

	geminiModel    string
	resultCount    int
	nodeTimeout    time.Duration
	parallelism    int
	workers        int
	maxRetries     int
	requestTimeout time.Duration
	rateLimitRPS   float64
	failFast       bool
	databaseURL    string
	redisAddr      string
	metricsAddr    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &rootFlags{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "researcher",
		Short: "Research lists of companies and people from the web",
		Long: `researcher answers list-style questions ("top manufacturing companies in
Virginia") by searching the web, grading and extracting with an LLM, and
optionally resolving companies through Apollo.

Settings come from an optional YAML file (--config or RESEARCH_CONFIG), then
the environment, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file (env: RESEARCH_CONFIG)")
	pf.StringVar(&f.csvDir, "csv-dir", "", "Write resolved companies.csv and people.csv here when no database is configured")
	pf.StringVar(&f.geminiModel, "gemini-model", "", "Gemini model name (env: GEMINI_MODEL)")
	pf.IntVar(&f.resultCount, "result-count", defaults.Research.ResultCount, "Search results per query (env: RESULT_COUNT)")
	pf.DurationVar(&f.nodeTimeout, "node-timeout", 0, "Per-node timeout, 0 disables (env: NODE_TIMEOUT)")
	pf.IntVar(&f.parallelism, "parallelism", defaults.Research.Parallelism, "Concurrent grade/extract calls within one run (env: PARALLELISM)")
	pf.IntVar(&f.workers, "workers", defaults.Worker.Workers, "Concurrent runs or lookups (env: WORKERS)")
	pf.IntVar(&f.maxRetries, "max-retries", defaults.Worker.MaxRetries, "Max retries for transient failures (env: MAX_RETRIES)")
	pf.DurationVar(&f.requestTimeout, "request-timeout", defaults.Worker.RequestTimeout.Std(), "Timeout per run or lookup (env: REQUEST_TIMEOUT)")
	pf.Float64Var(&f.rateLimitRPS, "rate-limit-rps", 0, "Global rate limit (RPS) across workers, 0 disables (env: RATE_LIMIT_RPS)")
	pf.BoolVar(&f.failFast, "fail-fast", false, "Abort a batch on the first failed run (env: FAIL_FAST)")
	pf.StringVar(&f.databaseURL, "database-url", "", "Postgres DSN for the sink (env: DATABASE_URL)")
	pf.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the page cache (env: REDIS_ADDR)")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (env: METRICS_ADDR)")

	root.AddCommand(
		newResearchCmd(f),
		newBatchCmd(f),
		newCompanyCmd(f),
		newPeopleCmd(f),
		newVersionCmd(),
	)
	return root
}

// load reads file and environment settings, then applies explicit flags.
func (f *rootFlags) load(cmd *cobra.Command) (config.Config, error) {
	path := f.configPath
	if strings.TrimSpace(path) == "" {
		path = os.Getenv("RESEARCH_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	fs := cmd.Flags()
	if fs.Changed("gemini-model") {
		cfg.Gemini.Model = f.geminiModel
	}
	if fs.Changed("result-count") {
		cfg.Research.ResultCount = f.resultCount
	}
	if fs.Changed("node-timeout") {
		cfg.Research.NodeTimeout = config.Duration(f.nodeTimeout)
	}
	if fs.Changed("parallelism") {
		cfg.Research.Parallelism = f.parallelism
	}
	if fs.Changed("workers") {
		cfg.Worker.Workers = f.workers
	}
	if fs.Changed("max-retries") {
		cfg.Worker.MaxRetries = f.maxRetries
	}
	if fs.Changed("request-timeout") {
		cfg.Worker.RequestTimeout = config.Duration(f.requestTimeout)
	}
	if fs.Changed("rate-limit-rps") {
		cfg.Worker.RateLimitRPS = f.rateLimitRPS
	}
	if fs.Changed("fail-fast") {
		cfg.Worker.FailFast = f.failFast
	}
	if fs.Changed("database-url") {
		cfg.Postgres.URL = f.databaseURL
	}
	if fs.Changed("redis-addr") {
		cfg.Redis.Addr = f.redisAddr
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	return cfg, nil
}
