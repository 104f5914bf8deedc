package sink

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/shpitdev/entity-research/internal/apollo"
)

// CompanyHeader returns the stable CSV header for company rows.
func CompanyHeader() []string {
	return []string{"company_id", "name", "founded_year", "linkedin_url", "website_url"}
}

// PersonHeader returns the stable CSV header for person rows.
func PersonHeader() []string {
	return []string{
		"person_id",
		"first_name",
		"last_name",
		"title",
		"seniority",
		"city",
		"state",
		"country",
		"email",
		"linkedin_url",
		"organization_name",
		"current_title_since",
	}
}

// CSV appends records to CSV writers. Each header is written once, before the
// first row. A nil writer discards that record kind. Unlike Postgres, CSV is
// append-only: repeated keys across calls produce repeated rows.
type CSV struct {
	mu        sync.Mutex
	companies *csvTable
	people    *csvTable
}

type csvTable struct {
	w             *csv.Writer
	header        []string
	headerWritten bool
}

var _ Sink = (*CSV)(nil)

func NewCSV(companies, people io.Writer) *CSV {
	s := &CSV{}
	if companies != nil {
		s.companies = &csvTable{w: csv.NewWriter(companies), header: CompanyHeader()}
	}
	if people != nil {
		s.people = &csvTable{w: csv.NewWriter(people), header: PersonHeader()}
	}
	return s
}

func (s *CSV) UpsertCompanies(_ context.Context, companies []apollo.CompanyRecord) error {
	companies = dedupeCompanies(companies)
	rows := make([][]string, 0, len(companies))
	for _, c := range companies {
		year := ""
		if c.FoundedYear > 0 {
			year = strconv.Itoa(c.FoundedYear)
		}
		rows = append(rows, []string{c.CompanyID, c.Name, year, c.LinkedInURL, c.WebsiteURL})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.companies.write(rows)
}

func (s *CSV) UpsertPeople(_ context.Context, people []apollo.PersonRecord) error {
	people = dedupePeople(people)
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		since := ""
		if len(p.EmploymentHistory) > 0 && p.EmploymentHistory[0].Current {
			since = p.EmploymentHistory[0].StartDate
		}
		rows = append(rows, []string{
			p.PersonID,
			p.FirstName,
			p.LastName,
			p.Title,
			p.Seniority,
			p.City,
			p.State,
			p.Country,
			p.Email,
			p.LinkedInURL,
			strings.TrimSpace(p.Organization.Name),
			since,
		})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.people.write(rows)
}

func (t *csvTable) write(rows [][]string) error {
	if t == nil || len(rows) == 0 {
		return nil
	}
	if !t.headerWritten {
		if err := t.w.Write(t.header); err != nil {
			return err
		}
		t.headerWritten = true
	}
	for _, r := range rows {
		if err := t.w.Write(r); err != nil {
			return err
		}
	}
	t.w.Flush()
	return t.w.Error()
}
