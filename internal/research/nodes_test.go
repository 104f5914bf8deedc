package research_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/entity-research/internal/research"
)

func TestGrader_OnlyLiteralYesIsRelevant(t *testing.T) {
	t.Parallel()

	cases := map[string]research.Verdict{
		"yes":    research.Relevant,
		" yes\n": research.Relevant,
		"no":     research.NotRelevant,
		"Yes":    research.NotRelevant,
		"yes.":   research.NotRelevant,
		"":       research.NotRelevant,
		"maybe":  research.NotRelevant,
	}
	for score, want := range cases {
		m := &stubModel{classify: func(string, string) (string, error) { return score, nil }}
		got, err := research.NewGrader(m).Grade(context.Background(), research.EntityCompanies, "q", research.Document{Content: "x"})
		require.NoError(t, err)
		assert.Equal(t, want, got, "score %q", score)
	}
}

func TestGrader_PropagatesModelError(t *testing.T) {
	t.Parallel()

	m := &stubModel{classify: func(string, string) (string, error) { return "", errModel }}
	_, err := research.NewGrader(m).Grade(context.Background(), research.EntityCompanies, "q", research.Document{Content: "x"})
	assert.ErrorIs(t, err, errModel)
}

func TestRewriter_BlankAnswerKeepsQuestion(t *testing.T) {
	t.Parallel()

	m := &stubModel{rewrite: func(string) (string, error) { return "  \n", nil }}
	got, err := research.NewRewriter(m).Rewrite(context.Background(), research.EntityCompanies, "original question")
	require.NoError(t, err)
	assert.Equal(t, "original question", got)

	m = &stubModel{rewrite: func(string) (string, error) { return "  better query  ", nil }}
	got, err = research.NewRewriter(m).Rewrite(context.Background(), research.EntityCompanies, "original question")
	require.NoError(t, err)
	assert.Equal(t, "better query", got)
}

func TestExtractor_BlankDocumentSkipsModel(t *testing.T) {
	t.Parallel()

	m := &stubModel{extract: func(string, string) ([]research.Entity, error) {
		return companies("should not appear"), nil
	}}
	x := research.NewExtractor(m)

	for _, content := range []string{"", "   ", "\n\t"} {
		got, err := x.Extract(context.Background(), research.EntityCompanies, "q", research.Document{Content: content})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Empty(t, m.Extracted())
}

func TestExtractor_DropsMismatchedRecords(t *testing.T) {
	t.Parallel()

	m := &stubModel{extract: func(string, string) ([]research.Entity, error) {
		return []research.Entity{
			research.CompanyEntity(research.Company{Name: "Acme Forge"}),
			research.PersonEntity(research.Person{FirstName: "Dana", LastName: "Reyes"}),
			{Type: research.EntityCompanies},
		}, nil
	}}

	got, err := research.NewExtractor(m).Extract(context.Background(), research.EntityCompanies, "q", research.Document{Content: "page"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Forge", got[0].Name())
}

func TestParseEntityType(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]research.EntityType{
		"companies": research.EntityCompanies,
		"Company":   research.EntityCompanies,
		" people ":  research.EntityPeople,
		"person":    research.EntityPeople,
	} {
		got, err := research.ParseEntityType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := research.ParseEntityType("vehicles")
	assert.ErrorIs(t, err, research.ErrUnknownEntityType)
}

func TestPersonFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Dana Reyes", research.Person{FirstName: " Dana", LastName: "Reyes "}.FullName())
	assert.Equal(t, "Dana", research.Person{FirstName: "Dana"}.FullName())
	assert.Equal(t, "", research.Entity{}.Name())
}
