package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/entity-research/internal/research"
	"github.com/shpitdev/entity-research/internal/util"
)

// Row is one line of batch output. A run that found nothing still produces
// a single row with an empty name; a run with N entities produces N rows.
type Row struct {
	Question    string
	Status      string
	Error       string
	EntityType  string
	Name        string
	WebsiteURL  string
	LinkedInURL string
	Title       string
}

// Header returns the stable CSV header for Row.
func Header() []string {
	return []string{
		"question",
		"status",
		"error",
		"entity_type",
		"name",
		"website_url",
		"linkedin_url",
		"title",
	}
}

func (r Row) record() []string {
	return []string{
		r.Question,
		r.Status,
		r.Error,
		r.EntityType,
		r.Name,
		r.WebsiteURL,
		r.LinkedInURL,
		r.Title,
	}
}

func rowsForRun(question string, entityType research.EntityType, entities []research.Entity, err error) []Row {
	base := Row{
		Question:   strings.TrimSpace(question),
		EntityType: string(entityType),
	}
	if err != nil {
		base.Status = "error"
		base.Error = util.RedactSecrets(err.Error())
		return []Row{base}
	}
	base.Status = "ok"
	if len(entities) == 0 {
		return []Row{base}
	}

	rows := make([]Row, 0, len(entities))
	for _, e := range entities {
		row := base
		row.Name = e.Name()
		switch {
		case e.Company != nil:
			row.WebsiteURL = e.Company.WebsiteURL
			row.LinkedInURL = e.Company.LinkedInURL
		case e.Person != nil:
			row.LinkedInURL = e.Person.LinkedInURL
			row.Title = e.Person.Title
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes a header followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadQuestionsCSV returns the non-blank values of the "question" column.
func ReadQuestionsCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), "question") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing required column %q", "question")
	}

	var questions []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(rec) {
			return nil, fmt.Errorf("row has %d columns, want at least %d", len(rec), col+1)
		}
		if strings.TrimSpace(rec[col]) == "" {
			continue
		}
		questions = append(questions, rec[col])
	}
	return questions, nil
}
