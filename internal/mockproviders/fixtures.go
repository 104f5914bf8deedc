package mockproviders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is the canned data the server answers with.
type Fixtures struct {
	// Search maps a query to result URLs. The "*" entry answers any query
	// without its own entry. Brave and Tavily share it unless Tavily is set.
	Search map[string][]string `yaml:"search"`
	Tavily map[string][]string `yaml:"tavily"`

	// Pages maps a URL to the text the reader returns for it. Unknown URLs
	// get a 404.
	Pages map[string]string `yaml:"pages"`

	Companies []Organization `yaml:"companies"`
	People    []Person       `yaml:"people"`

	Model Model `yaml:"model"`
}

// Model scripts the generateContent endpoint.
type Model struct {
	// Grade is returned as binary_score for every document. Empty means "yes".
	Grade string `yaml:"grade"`
	// Rewrite replaces the rewritten question. Empty appends " list" to the
	// question found in the prompt.
	Rewrite string `yaml:"rewrite"`
	// Extract maps "companies" or "people" to the records returned for every
	// document.
	Extract map[string][]map[string]any `yaml:"extract"`
}

type Organization struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	FoundedYear int    `yaml:"founded_year" json:"founded_year,omitempty"`
	LinkedInURL string `yaml:"linkedin_url" json:"linkedin_url,omitempty"`
	WebsiteURL  string `yaml:"website_url" json:"website_url,omitempty"`
}

type Employment struct {
	Title            string `yaml:"title" json:"title,omitempty"`
	OrganizationID   string `yaml:"organization_id" json:"organization_id,omitempty"`
	OrganizationName string `yaml:"organization_name" json:"organization_name,omitempty"`
	StartDate        string `yaml:"start_date" json:"start_date,omitempty"`
	EndDate          string `yaml:"end_date" json:"end_date,omitempty"`
	Current          bool   `yaml:"current" json:"current"`
}

type Person struct {
	ID                string        `yaml:"id" json:"id"`
	FirstName         string        `yaml:"first_name" json:"first_name,omitempty"`
	LastName          string        `yaml:"last_name" json:"last_name,omitempty"`
	Title             string        `yaml:"title" json:"title,omitempty"`
	Seniority         string        `yaml:"seniority" json:"seniority,omitempty"`
	City              string        `yaml:"city" json:"city,omitempty"`
	Country           string        `yaml:"country" json:"country,omitempty"`
	LinkedInURL       string        `yaml:"linkedin_url" json:"linkedin_url,omitempty"`
	Organization      *Organization `yaml:"organization" json:"organization,omitempty"`
	EmploymentHistory []Employment  `yaml:"employment_history" json:"employment_history,omitempty"`
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures YAML: %w", err)
	}
	return f, nil
}
