package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shpitdev/entity-research/internal/apollo"
	"github.com/shpitdev/entity-research/internal/research"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS companies (
	company_id   TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	founded_year INT,
	linkedin_url TEXT NOT NULL DEFAULT '',
	website_url  TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS people (
	person_id          TEXT PRIMARY KEY,
	first_name         TEXT NOT NULL DEFAULT '',
	last_name          TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	headline           TEXT NOT NULL DEFAULT '',
	seniority          TEXT NOT NULL DEFAULT '',
	departments        TEXT[] NOT NULL DEFAULT '{}',
	city               TEXT NOT NULL DEFAULT '',
	state              TEXT NOT NULL DEFAULT '',
	country            TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	linkedin_url       TEXT NOT NULL DEFAULT '',
	organization       JSONB NOT NULL DEFAULT '{}',
	employment_history JSONB NOT NULL DEFAULT '[]',
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const upsertCompanySQL = `
INSERT INTO companies (company_id, name, founded_year, linkedin_url, website_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (company_id) DO UPDATE SET
	name = EXCLUDED.name,
	founded_year = EXCLUDED.founded_year,
	linkedin_url = EXCLUDED.linkedin_url,
	website_url = EXCLUDED.website_url,
	updated_at = now()`

const upsertPersonSQL = `
INSERT INTO people (person_id, first_name, last_name, title, headline, seniority, departments,
	city, state, country, email, linkedin_url, organization, employment_history)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (person_id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	title = EXCLUDED.title,
	headline = EXCLUDED.headline,
	seniority = EXCLUDED.seniority,
	departments = EXCLUDED.departments,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	country = EXCLUDED.country,
	email = EXCLUDED.email,
	linkedin_url = EXCLUDED.linkedin_url,
	organization = EXCLUDED.organization,
	employment_history = EXCLUDED.employment_history,
	updated_at = now()`

// Postgres upserts records through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Sink = (*Postgres)(nil)

// OpenPostgres connects and pings the database.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the companies and people tables if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertCompanies(ctx context.Context, companies []apollo.CompanyRecord) error {
	companies = dedupeCompanies(companies)
	if len(companies) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, c := range companies {
		b.Queue(upsertCompanySQL, c.CompanyID, c.Name, nullableYear(c.FoundedYear), c.LinkedInURL, c.WebsiteURL)
	}
	return p.send(ctx, "companies", b)
}

func (p *Postgres) UpsertPeople(ctx context.Context, people []apollo.PersonRecord) error {
	people = dedupePeople(people)
	if len(people) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range people {
		departments := r.Departments
		if departments == nil {
			departments = []string{}
		}
		history := r.EmploymentHistory
		if history == nil {
			history = []research.Employment{}
		}
		b.Queue(upsertPersonSQL,
			r.PersonID, r.FirstName, r.LastName, r.Title, r.Headline, r.Seniority, departments,
			r.City, r.State, r.Country, r.Email, r.LinkedInURL, r.Organization, history,
		)
	}
	return p.send(ctx, "people", b)
}

func (p *Postgres) send(ctx context.Context, table string, b *pgx.Batch) error {
	br := p.pool.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert %s row %d: %w", table, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func nullableYear(y int) *int32 {
	if y <= 0 {
		return nil
	}
	v := int32(y)
	return &v
}
