package gemini

import (
	"strings"

	"github.com/shpitdev/entity-research/internal/research"
)

// maxContentChars bounds the document text sent to the model. Rendered pages
// can run to megabytes.
const maxContentChars = 60_000

func buildGradePrompt(entityType research.EntityType, question, content string) string {
	return strings.TrimSpace(`
You are a grader assessing relevance of retrieved content to a user's question.
The user is trying to gather a list of ` + string(entityType) + ` based on certain criteria.
If the document contains many ` + string(entityType) + ` related to the question, grade it as relevant.

Return ONLY a JSON object with one key:
- binary_score (string; exactly "yes" or "no")

Retrieved document:

` + truncate(content) + `

User question: ` + question + `
`)
}

func buildRewritePrompt(entityType research.EntityType, question string) string {
	return strings.TrimSpace(`
You are a question re-writer that converts an input question to a better version that is optimized for web search.
Look at the input and reason about the underlying semantic intent.
Then reformat the question into a web query that is most likely to return results containing a list of ` + string(entityType) + `.

Return ONLY a JSON object with one key:
- question (string; the improved web query)

Initial question: ` + question + `
`)
}

func buildExtractPrompt(entityType research.EntityType, question, content string) string {
	key := "companies"
	fields := "name, founded_year, linkedin_url, website_url, employee_ranges, locations, not_locations, keyword_tags"
	if entityType == research.EntityPeople {
		key = "people"
		fields = "first_name, last_name, title, headline, seniority, city, state, country, email, linkedin_url, organization, employment_history (most recent first)"
	}
	return strings.TrimSpace(`
You are a researcher doing research on ` + string(entityType) + `.
Use the following context retrieved from a website to extract all the relevant ` + string(entityType) + `.
If you can't find any relevant ` + string(entityType) + `, return an empty list. Wrong answers are worse than no answers.

Return ONLY a JSON object with one key:
- ` + key + ` (array; each item may carry: ` + fields + `)

Only fill in the values you are certain of. Leave any other field empty.

Question: ` + question + `
Context:

` + truncate(content) + `
`)
}

func truncate(s string) string {
	if len(s) <= maxContentChars {
		return s
	}
	cut := maxContentChars
	// Avoid splitting a UTF-8 sequence.
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
