package gemini

import (
	"google.golang.org/genai"

	"github.com/shpitdev/entity-research/internal/research"
)

var gradeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"binary_score": {
			Type:        genai.TypeString,
			Enum:        []string{"yes", "no"},
			Description: "Whether the document is relevant to the question, 'yes' or 'no'",
		},
	},
	Required: []string{"binary_score"},
}

var rewriteSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"question": {Type: genai.TypeString},
	},
	Required: []string{"question"},
}

func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

var companySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":            {Type: genai.TypeString},
		"founded_year":    {Type: genai.TypeInteger},
		"linkedin_url":    {Type: genai.TypeString},
		"website_url":     {Type: genai.TypeString},
		"employee_ranges": stringList(),
		"locations":       stringList(),
		"not_locations":   stringList(),
		"keyword_tags":    stringList(),
	},
	Required: []string{"name"},
}

var personSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"first_name":   {Type: genai.TypeString},
		"last_name":    {Type: genai.TypeString},
		"title":        {Type: genai.TypeString},
		"headline":     {Type: genai.TypeString},
		"seniority":    {Type: genai.TypeString},
		"city":         {Type: genai.TypeString},
		"state":        {Type: genai.TypeString},
		"country":      {Type: genai.TypeString},
		"email":        {Type: genai.TypeString},
		"linkedin_url": {Type: genai.TypeString},
		"organization": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":         {Type: genai.TypeString},
				"linkedin_url": {Type: genai.TypeString},
			},
		},
		"employment_history": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":             {Type: genai.TypeString},
					"organization_name": {Type: genai.TypeString},
					"start_date":        {Type: genai.TypeString},
					"end_date":          {Type: genai.TypeString},
					"current":           {Type: genai.TypeBoolean},
				},
			},
		},
	},
}

var extractSchemas = map[research.EntityType]*genai.Schema{
	research.EntityCompanies: {
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"companies": {Type: genai.TypeArray, Items: companySchema},
		},
		Required: []string{"companies"},
	},
	research.EntityPeople: {
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"people": {Type: genai.TypeArray, Items: personSchema},
		},
		Required: []string{"people"},
	},
}
