package research

import (
	"fmt"
	"strings"
)

// EntityType selects the extraction schema for a run.
type EntityType string

const (
	EntityCompanies EntityType = "companies"
	EntityPeople    EntityType = "people"
)

// Valid reports whether t is one of the supported entity types.
func (t EntityType) Valid() bool {
	return t == EntityCompanies || t == EntityPeople
}

// ParseEntityType accepts singular and plural spellings, case-insensitively.
func ParseEntityType(raw string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "companies", "company", "organizations", "organization":
		return EntityCompanies, nil
	case "people", "person", "persons":
		return EntityPeople, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, raw)
	}
}

// NoResultsContent is the body of the synthetic document inserted when no
// search backend produced anything.
const NoResultsContent = "No results found from web search."

// Document is one piece of hydrated web content owned by a single run.
type Document struct {
	Content   string
	SourceURL string
}

// NoResultsDocument returns the synthetic placeholder document.
func NoResultsDocument() Document {
	return Document{Content: NoResultsContent}
}

// IsBlank reports whether the document carries no usable text.
func (d Document) IsBlank() bool {
	return strings.TrimSpace(d.Content) == ""
}

// Verdict is the relevance grade of one document.
type Verdict int

const (
	NotRelevant Verdict = iota
	Relevant
)

func (v Verdict) String() string {
	if v == Relevant {
		return "relevant"
	}
	return "not_relevant"
}

// ParseVerdict maps a classifier's binary score to a Verdict. Only the literal
// "yes" (surrounding whitespace ignored) counts as relevant.
func ParseVerdict(score string) Verdict {
	if strings.TrimSpace(score) == "yes" {
		return Relevant
	}
	return NotRelevant
}

// Company is an extracted organization. Every field is optional.
type Company struct {
	Name           string   `json:"name,omitempty"`
	FoundedYear    int      `json:"founded_year,omitempty"`
	LinkedInURL    string   `json:"linkedin_url,omitempty"`
	WebsiteURL     string   `json:"website_url,omitempty"`
	EmployeeRanges []string `json:"employee_ranges,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	NotLocations   []string `json:"not_locations,omitempty"`
	KeywordTags    []string `json:"keyword_tags,omitempty"`
}

// OrganizationRef points a person at their current employer.
type OrganizationRef struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Employment is one entry of a person's work history.
type Employment struct {
	Title            string `json:"title,omitempty"`
	OrganizationID   string `json:"organization_id,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
	Current          bool   `json:"current,omitempty"`
	Description      string `json:"description,omitempty"`
}

// Person is an extracted individual. EmploymentHistory is most recent first.
type Person struct {
	FirstName         string           `json:"first_name,omitempty"`
	LastName          string           `json:"last_name,omitempty"`
	Title             string           `json:"title,omitempty"`
	Headline          string           `json:"headline,omitempty"`
	Seniority         string           `json:"seniority,omitempty"`
	City              string           `json:"city,omitempty"`
	State             string           `json:"state,omitempty"`
	Country           string           `json:"country,omitempty"`
	Email             string           `json:"email,omitempty"`
	LinkedInURL       string           `json:"linkedin_url,omitempty"`
	Organization      *OrganizationRef `json:"organization,omitempty"`
	EmploymentHistory []Employment     `json:"employment_history,omitempty"`
}

// FullName joins the non-empty name parts.
func (p Person) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Entity is a tagged union of the extraction schemas. Exactly one of Company
// and Person is set, matching Type.
type Entity struct {
	Type    EntityType `json:"type"`
	Company *Company   `json:"company,omitempty"`
	Person  *Person    `json:"person,omitempty"`
}

func CompanyEntity(c Company) Entity {
	return Entity{Type: EntityCompanies, Company: &c}
}

func PersonEntity(p Person) Entity {
	return Entity{Type: EntityPeople, Person: &p}
}

// Name returns a display name for logs and CSV output.
func (e Entity) Name() string {
	switch {
	case e.Company != nil:
		return strings.TrimSpace(e.Company.Name)
	case e.Person != nil:
		return e.Person.FullName()
	default:
		return ""
	}
}

func (e Entity) matches(t EntityType) bool {
	switch t {
	case EntityCompanies:
		return e.Type == t && e.Company != nil
	case EntityPeople:
		return e.Type == t && e.Person != nil
	default:
		return false
	}
}

// RunState is the mutable aggregate threaded through one run.
type RunState struct {
	Question          string
	Documents         []Document
	RewriteAttempted  bool
	ExtractedEntities []Entity
}
