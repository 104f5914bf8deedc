// Package research turns a free-text question into a list of companies or
// people. A run walks a fixed set of states:
//
//	Search -> Grade -> Decide -> Extract -> Done
//	                      \-> Rewrite -> SearchRetry -> Extract -> Done
//
// Documents from SearchRetry go straight to Extract without a second grading
// pass, so a run performs at most two searches and one rewrite.
package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shpitdev/entity-research/internal/util"
	"github.com/shpitdev/entity-research/internal/worker"
)

// State is a node of the workflow.
type State int

const (
	StateSearch State = iota
	StateGrade
	StateDecide
	StateRewrite
	StateSearchRetry
	StateExtract
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSearch:
		return "search"
	case StateGrade:
		return "grade"
	case StateDecide:
		return "decide"
	case StateRewrite:
		return "rewrite"
	case StateSearchRetry:
		return "search_retry"
	case StateExtract:
		return "extract"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decision is the outcome of the Decide node.
type Decision int

const (
	DecisionReadyToExtract Decision = iota
	DecisionNeedsRewrite
)

func (d Decision) String() string {
	if d == DecisionNeedsRewrite {
		return "needs_rewrite"
	}
	return "ready_to_extract"
}

// Decide picks the branch after grading.
func Decide(st RunState) Decision {
	if len(st.Documents) == 0 && !st.RewriteAttempted {
		return DecisionNeedsRewrite
	}
	return DecisionReadyToExtract
}

type Options struct {
	// ResultCount is the number of results requested from the primary backend.
	ResultCount int

	// NodeTimeout bounds each node. Zero disables it. A node that overruns its
	// budget fails the run with context.DeadlineExceeded.
	NodeTimeout time.Duration

	// Parallelism fans grading and extraction out across documents. Values <= 1
	// process documents one at a time in order.
	Parallelism int

	Logger   *log.Logger
	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.ResultCount <= 0 {
		o.ResultCount = defaultResultCount
	}
	if o.NodeTimeout < 0 {
		o.NodeTimeout = 0
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// Engine executes runs. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	search    SearchProvider
	grader    RelevanceGrader
	rewriter  QueryRewriter
	extractor EntityExtractor
	opts      Options
}

func NewEngine(search SearchProvider, grader RelevanceGrader, rewriter QueryRewriter, extractor EntityExtractor, opts Options) *Engine {
	return &Engine{
		search:    search,
		grader:    grader,
		rewriter:  rewriter,
		extractor: extractor,
		opts:      opts.withDefaults(),
	}
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Entities []Entity
	State    RunState
	// Path lists the states visited, ending with StateDone.
	Path []State
}

type run struct {
	id         string
	entityType EntityType
	state      RunState
	decision   Decision
}

// Run executes one research run. On failure the returned error is a
// *NodeError (or a validation error) and no entities are returned.
func (e *Engine) Run(ctx context.Context, question string, entityType EntityType) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, ErrEmptyQuestion
	}
	if !entityType.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}

	r := &run{
		id:         uuid.NewString(),
		entityType: entityType,
		state:      RunState{Question: question},
	}
	ctx = WithRunID(ctx, r.id)
	start := time.Now()
	e.logf(r, "run start: entity_type=%s question=%q result_count=%d node_timeout=%s parallelism=%d",
		entityType, question, e.opts.ResultCount, e.opts.NodeTimeout, e.opts.Parallelism)

	path := make([]State, 0, 7)
	cur := StateSearch
	for cur != StateDone {
		path = append(path, cur)
		next, err := e.step(ctx, r, cur)
		if err != nil {
			nodeErr := &NodeError{State: cur, Err: err}
			e.logf(r, "run failed: state=%s duration=%s error=%q",
				cur, time.Since(start).Round(time.Millisecond), util.RedactSecrets(err.Error()))
			e.opts.Observer.RunFinished(entityType, time.Since(start), nodeErr)
			return Result{RunID: r.id, Path: path}, nodeErr
		}
		cur = next
	}
	path = append(path, StateDone)

	e.logf(r, "run complete: entities=%d rewrite=%t duration=%s",
		len(r.state.ExtractedEntities), r.state.RewriteAttempted, time.Since(start).Round(time.Millisecond))
	e.opts.Observer.RunFinished(entityType, time.Since(start), nil)
	return Result{
		RunID:    r.id,
		Entities: r.state.ExtractedEntities,
		State:    r.state,
		Path:     path,
	}, nil
}

// step runs one node under its own deadline. Cancellation of the parent
// context is honoured at node boundaries.
func (e *Engine) step(ctx context.Context, r *run, s State) (State, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}

	nodeCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.opts.NodeTimeout > 0 {
		nodeCtx, cancel = context.WithTimeout(ctx, e.opts.NodeTimeout)
	}
	defer cancel()

	start := time.Now()
	next, err := e.transition(nodeCtx, r, s)
	if err == nil && ctx.Err() == nil && errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("node exceeded %s: %w", e.opts.NodeTimeout, context.DeadlineExceeded)
	}
	elapsed := time.Since(start)
	e.opts.Observer.NodeFinished(s, elapsed, err)
	if err == nil {
		e.logf(r, "node done: state=%s next=%s documents=%d duration=%s",
			s, next, len(r.state.Documents), elapsed.Round(time.Millisecond))
	}
	return next, err
}

func (e *Engine) transition(ctx context.Context, r *run, s State) (State, error) {
	switch s {
	case StateSearch:
		r.state.Documents = e.search.Search(ctx, r.state.Question, e.opts.ResultCount)
		return StateGrade, nil

	case StateGrade:
		relevant, err := e.gradeAll(ctx, r)
		if err != nil {
			return s, err
		}
		r.state.Documents = relevant
		return StateDecide, nil

	case StateDecide:
		r.decision = Decide(r.state)
		e.logf(r, "decision: %s", r.decision)
		if r.decision == DecisionNeedsRewrite {
			return StateRewrite, nil
		}
		return StateExtract, nil

	case StateRewrite:
		rewritten, err := e.rewriter.Rewrite(ctx, r.entityType, r.state.Question)
		if err != nil {
			return s, err
		}
		e.logf(r, "question rewritten: from=%q to=%q", r.state.Question, rewritten)
		r.state.Question = rewritten
		r.state.RewriteAttempted = true
		return StateSearchRetry, nil

	case StateSearchRetry:
		r.state.Documents = e.search.Search(ctx, r.state.Question, e.opts.ResultCount)
		return StateExtract, nil

	case StateExtract:
		entities, err := e.extractAll(ctx, r)
		if err != nil {
			return s, err
		}
		r.state.ExtractedEntities = entities
		return StateDone, nil

	default:
		return s, fmt.Errorf("no transition from %s", s)
	}
}

func (e *Engine) gradeAll(ctx context.Context, r *run) ([]Document, error) {
	question := r.state.Question
	verdicts, err := eachDocument(ctx, e.opts.Parallelism, r.state.Documents, func(ctx context.Context, d Document) (Verdict, error) {
		return e.grader.Grade(ctx, r.entityType, question, d)
	})
	if err != nil {
		return nil, err
	}
	relevant := make([]Document, 0, len(r.state.Documents))
	for i, v := range verdicts {
		e.logf(r, "graded: source=%q verdict=%s", r.state.Documents[i].SourceURL, v)
		if v == Relevant {
			relevant = append(relevant, r.state.Documents[i])
		}
	}
	return relevant, nil
}

func (e *Engine) extractAll(ctx context.Context, r *run) ([]Entity, error) {
	question := r.state.Question
	perDoc, err := eachDocument(ctx, e.opts.Parallelism, r.state.Documents, func(ctx context.Context, d Document) ([]Entity, error) {
		return e.extractor.Extract(ctx, r.entityType, question, d)
	})
	if err != nil {
		return nil, err
	}
	var out []Entity
	for _, ents := range perDoc {
		out = append(out, ents...)
	}
	if out == nil {
		out = []Entity{}
	}
	return out, nil
}

// eachDocument applies fn to every document and returns results in document
// order. The first error aborts the remaining work.
func eachDocument[Out any](ctx context.Context, parallelism int, docs []Document, fn func(context.Context, Document) (Out, error)) ([]Out, error) {
	if parallelism <= 1 || len(docs) <= 1 {
		out := make([]Out, 0, len(docs))
		for _, d := range docs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v, err := fn(ctx, d)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	results, err := worker.ProcessAll(ctx, docs, fn, worker.Options{
		Workers:        min(parallelism, len(docs)),
		MaxRetries:     0,
		RequestTimeout: -1,
		FailurePolicy:  worker.FailurePolicyFailFast,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Out, len(results))
	for i, res := range results {
		out[i] = res.Output
	}
	return out, nil
}

func (e *Engine) logf(r *run, format string, args ...any) {
	prefix := make([]any, 0, len(args)+1)
	prefix = append(prefix, r.id)
	prefix = append(prefix, args...)
	e.opts.Logger.Printf("run=%s "+format, prefix...)
}

type runIDKey struct{}

// WithRunID tags ctx with a run identifier for log correlation.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run identifier set by WithRunID, or "-".
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return "-"
}
