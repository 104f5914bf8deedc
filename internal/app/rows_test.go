package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shpitdev/entity-research/internal/research"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Row{{
		Question:   "Top manufacturing companies in Virginia",
		Status:     "ok",
		EntityType: "companies",
		Name:       "Acme, Inc.",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "question,status,error,entity_type,name,website_url,linkedin_url,title\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "\nTop manufacturing companies in Virginia,ok,,companies,\"Acme, Inc.\",,,\n") {
		t.Fatalf("unexpected body: %q", out)
	}
}

func TestReadQuestionsCSV(t *testing.T) {
	t.Parallel()

	in := "\ufeffid,Question\n1,Top manufacturing companies in Virginia\n2,   \n3,\"\"\n4,\"CTOs of fintech startups, NYC\"\n"
	got, err := ReadQuestionsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Top manufacturing companies in Virginia", "CTOs of fintech startups, NYC"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestReadQuestionsCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "read header"},
		{name: "missing column", in: "email\na@b.c\n", want: `missing required column "question"`},
		{name: "short row", in: "id,question\n1\n", want: "row has 1 columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadQuestionsCSV(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestRowsForRun_RedactsErrors(t *testing.T) {
	t.Parallel()

	rows := rowsForRun("q", research.EntityPeople, nil, errors.New("GET https://api.test?api_key=sk-secret-value failed"))
	if len(rows) != 1 || rows[0].Status != "error" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
	if strings.Contains(rows[0].Error, "sk-secret-value") {
		t.Fatalf("secret leaked: %q", rows[0].Error)
	}
}
