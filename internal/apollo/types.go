package apollo

import (
	"strings"

	"github.com/shpitdev/entity-research/internal/research"
)

// CompanyQuery filters an organization search. Empty fields are omitted
// from the request.
type CompanyQuery struct {
	Name           string   `json:"q_organization_name,omitempty"`
	EmployeeRanges []string `json:"organization_num_employees_ranges,omitempty"`
	Locations      []string `json:"organization_locations,omitempty"`
	NotLocations   []string `json:"organization_not_locations,omitempty"`
	KeywordTags    []string `json:"q_organization_keyword_tags,omitempty"`
	Page           int      `json:"page,omitempty"`
	PerPage        int      `json:"per_page,omitempty"`
}

// QueryFromCompany turns an extracted company into a lookup query.
func QueryFromCompany(c research.Company) CompanyQuery {
	return CompanyQuery{
		Name:           strings.TrimSpace(c.Name),
		EmployeeRanges: c.EmployeeRanges,
		Locations:      c.Locations,
		NotLocations:   c.NotLocations,
		KeywordTags:    c.KeywordTags,
	}
}

// CompanyRecord is the persisted shape of a resolved organization. CompanyID
// is the natural key.
type CompanyRecord struct {
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	FoundedYear int    `json:"founded_year,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
}

// PeopleQuery filters a people search. Titles match any of the values.
type PeopleQuery struct {
	PersonTitles          []string `json:"person_titles,omitempty"`
	Keywords              string   `json:"q_keywords,omitempty"`
	PersonLocations       []string `json:"person_locations,omitempty"`
	PersonSeniorities     []string `json:"person_seniorities,omitempty"`
	EmailStatuses         []string `json:"contact_email_status,omitempty"`
	OrganizationDomains   []string `json:"-"`
	OrganizationLocations []string `json:"organization_locations,omitempty"`
	OrganizationIDs       []string `json:"organization_ids,omitempty"`
	EmployeeRanges        []string `json:"organization_num_employees_ranges,omitempty"`
	Page                  int      `json:"page,omitempty"`
	PerPage               int      `json:"per_page,omitempty"`
}

// PersonRecord is the persisted shape of a person. PersonID is the natural key.
type PersonRecord struct {
	PersonID          string                   `json:"person_id"`
	FirstName         string                   `json:"first_name,omitempty"`
	LastName          string                   `json:"last_name,omitempty"`
	Title             string                   `json:"title,omitempty"`
	Headline          string                   `json:"headline,omitempty"`
	Seniority         string                   `json:"seniority,omitempty"`
	Departments       []string                 `json:"departments,omitempty"`
	City              string                   `json:"city,omitempty"`
	State             string                   `json:"state,omitempty"`
	Country           string                   `json:"country,omitempty"`
	Email             string                   `json:"email,omitempty"`
	LinkedInURL       string                   `json:"linkedin_url,omitempty"`
	Organization      research.OrganizationRef `json:"organization"`
	EmploymentHistory []research.Employment    `json:"employment_history,omitempty"`
}

// Name joins the person's first and last name.
func (p PersonRecord) Name() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Wire shapes of the Apollo API responses.

type organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FoundedYear *int   `json:"founded_year"`
	LinkedInURL string `json:"linkedin_url"`
	WebsiteURL  string `json:"website_url"`
}

type companiesResponse struct {
	Organizations []organization `json:"organizations"`
}

type employment struct {
	Title            string `json:"title"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Current          bool   `json:"current"`
	Description      string `json:"description"`
}

type person struct {
	ID                string        `json:"id"`
	FirstName         string        `json:"first_name"`
	LastName          string        `json:"last_name"`
	Title             string        `json:"title"`
	Headline          string        `json:"headline"`
	Seniority         string        `json:"seniority"`
	Departments       []string      `json:"departments"`
	City              string        `json:"city"`
	State             string        `json:"state"`
	Country           string        `json:"country"`
	Email             string        `json:"email"`
	LinkedInURL       string        `json:"linkedin_url"`
	Organization      *organization `json:"organization"`
	EmploymentHistory []employment  `json:"employment_history"`
}

type peopleResponse struct {
	People []person `json:"people"`
}

func (o organization) record() CompanyRecord {
	rec := CompanyRecord{
		CompanyID:   o.ID,
		Name:        o.Name,
		LinkedInURL: o.LinkedInURL,
		WebsiteURL:  o.WebsiteURL,
	}
	if o.FoundedYear != nil {
		rec.FoundedYear = *o.FoundedYear
	}
	return rec
}

func (p person) record() PersonRecord {
	rec := PersonRecord{
		PersonID:    p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Title:       p.Title,
		Headline:    p.Headline,
		Seniority:   p.Seniority,
		Departments: p.Departments,
		City:        p.City,
		State:       p.State,
		Country:     p.Country,
		Email:       p.Email,
		LinkedInURL: p.LinkedInURL,
	}
	if p.Organization != nil {
		rec.Organization = research.OrganizationRef{
			ID:          p.Organization.ID,
			Name:        p.Organization.Name,
			LinkedInURL: p.Organization.LinkedInURL,
		}
	}
	for _, e := range p.EmploymentHistory {
		rec.EmploymentHistory = append(rec.EmploymentHistory, research.Employment{
			Title:            e.Title,
			OrganizationID:   e.OrganizationID,
			OrganizationName: e.OrganizationName,
			StartDate:        e.StartDate,
			EndDate:          e.EndDate,
			Current:          e.Current,
			Description:      e.Description,
		})
	}
	return rec
}
