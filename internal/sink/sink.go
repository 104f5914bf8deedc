// Package sink persists resolved companies and people. Writes are idempotent
// upserts keyed on company_id and person_id.
package sink

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/shpitdev/entity-research/internal/apollo"
	"github.com/shpitdev/entity-research/internal/research"
)

type Sink interface {
	UpsertCompanies(ctx context.Context, companies []apollo.CompanyRecord) error
	UpsertPeople(ctx context.Context, people []apollo.PersonRecord) error
}

// Discard drops everything. Used when no store is configured.
type Discard struct{}

func (Discard) UpsertCompanies(context.Context, []apollo.CompanyRecord) error { return nil }
func (Discard) UpsertPeople(context.Context, []apollo.PersonRecord) error     { return nil }

// personNamespace scopes derived person keys.
var personNamespace = uuid.MustParse("3f1c9a52-6d0e-4f57-9b8a-2c4e7d1a5b90")

// PersonKey derives a stable person_id for a person extracted from the web,
// which has no provider id. The LinkedIn URL wins over the name.
func PersonKey(p research.Person) string {
	basis := strings.ToLower(strings.TrimRight(strings.TrimSpace(p.LinkedInURL), "/"))
	if basis == "" {
		basis = "name:" + strings.ToLower(p.FullName())
		if p.Organization != nil {
			basis += "|org:" + strings.ToLower(strings.TrimSpace(p.Organization.Name))
		}
	}
	return uuid.NewSHA1(personNamespace, []byte(basis)).String()
}

// PersonRecordFromEntity converts an extracted person to its persisted shape.
func PersonRecordFromEntity(p research.Person) apollo.PersonRecord {
	rec := apollo.PersonRecord{
		PersonID:          PersonKey(p),
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Title:             p.Title,
		Headline:          p.Headline,
		Seniority:         p.Seniority,
		City:              p.City,
		State:             p.State,
		Country:           p.Country,
		Email:             p.Email,
		LinkedInURL:       p.LinkedInURL,
		EmploymentHistory: p.EmploymentHistory,
	}
	if p.Organization != nil {
		rec.Organization = *p.Organization
	}
	return rec
}

// dedupeCompanies keeps the last record per key, in first-seen position, and
// drops keyless ones.
func dedupeCompanies(in []apollo.CompanyRecord) []apollo.CompanyRecord {
	idx := make(map[string]int, len(in))
	out := make([]apollo.CompanyRecord, 0, len(in))
	for _, c := range in {
		id := strings.TrimSpace(c.CompanyID)
		if id == "" {
			continue
		}
		if i, ok := idx[id]; ok {
			out[i] = c
			continue
		}
		idx[id] = len(out)
		out = append(out, c)
	}
	return out
}

func dedupePeople(in []apollo.PersonRecord) []apollo.PersonRecord {
	idx := make(map[string]int, len(in))
	out := make([]apollo.PersonRecord, 0, len(in))
	for _, p := range in {
		id := strings.TrimSpace(p.PersonID)
		if id == "" {
			continue
		}
		if i, ok := idx[id]; ok {
			out[i] = p
			continue
		}
		idx[id] = len(out)
		out = append(out, p)
	}
	return out
}
