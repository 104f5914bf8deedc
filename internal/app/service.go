package app

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/shpitdev/entity-research/internal/apollo"
	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/sink"
	"github.com/shpitdev/entity-research/internal/util"
	"github.com/shpitdev/entity-research/internal/worker"
)

var (
	// ErrEngineNotConfigured is returned by research operations when the
	// service was built without an engine (Apollo-only commands).
	ErrEngineNotConfigured = errors.New("app: research engine not configured")
	// ErrApolloNotConfigured is returned by operations that need the Apollo
	// client when none was supplied.
	ErrApolloNotConfigured = errors.New("app: apollo client not configured")
)

// Runner is satisfied by *research.Engine.
type Runner interface {
	Run(ctx context.Context, question string, entityType research.EntityType) (research.Result, error)
}

// Apollo is satisfied by *apollo.Client.
type Apollo interface {
	apollo.CompanySearcher
	SearchPeople(ctx context.Context, q apollo.PeopleQuery) ([]apollo.PersonRecord, error)
}

type Config struct {
	// Engine may be nil; Research, FindCompanies, FindPeople and RunBatch
	// then fail with ErrEngineNotConfigured.
	Engine Runner
	// Apollo may be nil; FindCompanies, LookupCompany and SearchPeople then
	// fail with ErrApolloNotConfigured.
	Apollo Apollo
	// Sink defaults to sink.Discard.
	Sink   sink.Sink
	Logger *log.Logger
	// Resolve bounds the per-company Apollo lookups of FindCompanies.
	Resolve worker.Options
}

// Service ties a research run to company resolution and persistence.
type Service struct {
	engine  Runner
	apollo  Apollo
	sink    sink.Sink
	logger  *log.Logger
	resolve worker.Options
}

func NewService(cfg Config) *Service {
	if cfg.Sink == nil {
		cfg.Sink = sink.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		engine:  cfg.Engine,
		apollo:  cfg.Apollo,
		sink:    cfg.Sink,
		logger:  cfg.Logger,
		resolve: cfg.Resolve,
	}
}

// Research runs the workflow without resolution or persistence.
func (s *Service) Research(ctx context.Context, question string, entityType research.EntityType) (research.Result, error) {
	if s.engine == nil {
		return research.Result{}, ErrEngineNotConfigured
	}
	return s.engine.Run(ctx, question, entityType)
}

// FindCompanies researches companies, resolves each through Apollo and
// upserts the matches. The returned records are what Apollo matched.
func (s *Service) FindCompanies(ctx context.Context, question string) ([]apollo.CompanyRecord, error) {
	if s.apollo == nil {
		return nil, ErrApolloNotConfigured
	}
	if s.engine == nil {
		return nil, ErrEngineNotConfigured
	}
	res, err := s.engine.Run(ctx, question, research.EntityCompanies)
	if err != nil {
		return nil, err
	}
	ctx = research.WithRunID(ctx, res.RunID)

	companies := make([]research.Company, 0, len(res.Entities))
	for _, e := range res.Entities {
		if e.Company != nil {
			companies = append(companies, *e.Company)
		}
	}

	start := time.Now()
	records, err := apollo.ResolveCompanies(ctx, s.apollo, companies, s.resolve, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Printf(
		"run=%s companies resolved: extracted=%d matched=%d duration=%s",
		res.RunID,
		len(companies),
		len(records),
		time.Since(start).Round(time.Millisecond),
	)
	s.upsertCompanies(ctx, records)
	return records, nil
}

// FindPeople researches people and upserts them under derived keys.
func (s *Service) FindPeople(ctx context.Context, question string) ([]apollo.PersonRecord, error) {
	if s.engine == nil {
		return nil, ErrEngineNotConfigured
	}
	res, err := s.engine.Run(ctx, question, research.EntityPeople)
	if err != nil {
		return nil, err
	}
	ctx = research.WithRunID(ctx, res.RunID)

	people := make([]apollo.PersonRecord, 0, len(res.Entities))
	for _, e := range res.Entities {
		if e.Person != nil {
			people = append(people, sink.PersonRecordFromEntity(*e.Person))
		}
	}
	s.upsertPeople(ctx, people)
	return people, nil
}

// LookupCompany queries Apollo directly. A nil record means no match.
func (s *Service) LookupCompany(ctx context.Context, q apollo.CompanyQuery) (*apollo.CompanyRecord, error) {
	if s.apollo == nil {
		return nil, ErrApolloNotConfigured
	}
	rec, err := s.apollo.SearchCompany(ctx, q)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.upsertCompanies(ctx, []apollo.CompanyRecord{*rec})
	}
	return rec, nil
}

func (s *Service) SearchPeople(ctx context.Context, q apollo.PeopleQuery) ([]apollo.PersonRecord, error) {
	if s.apollo == nil {
		return nil, ErrApolloNotConfigured
	}
	people, err := s.apollo.SearchPeople(ctx, q)
	if err != nil {
		return nil, err
	}
	s.upsertPeople(ctx, people)
	return people, nil
}

// Sink failures never fail the caller; the records were already returned
// by the provider.
func (s *Service) upsertCompanies(ctx context.Context, records []apollo.CompanyRecord) {
	if len(records) == 0 {
		return
	}
	start := time.Now()
	if err := s.sink.UpsertCompanies(ctx, records); err != nil {
		s.logger.Printf("run=%s sink upsert failed: kind=companies count=%d error=%q", research.RunIDFromContext(ctx), len(records), util.RedactSecrets(err.Error()))
		return
	}
	s.logger.Printf("run=%s sink upsert: kind=companies count=%d duration=%s", research.RunIDFromContext(ctx), len(records), time.Since(start).Round(time.Millisecond))
}

func (s *Service) upsertPeople(ctx context.Context, records []apollo.PersonRecord) {
	if len(records) == 0 {
		return
	}
	start := time.Now()
	if err := s.sink.UpsertPeople(ctx, records); err != nil {
		s.logger.Printf("run=%s sink upsert failed: kind=people count=%d error=%q", research.RunIDFromContext(ctx), len(records), util.RedactSecrets(err.Error()))
		return
	}
	s.logger.Printf("run=%s sink upsert: kind=people count=%d duration=%s", research.RunIDFromContext(ctx), len(records), time.Since(start).Round(time.Millisecond))
}
