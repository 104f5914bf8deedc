package research

import (
	"context"
	"strings"
)

// Grader grades documents with one classifier call each.
type Grader struct {
	model ClassifyModel
}

func NewGrader(model ClassifyModel) *Grader {
	return &Grader{model: model}
}

// Grade returns the document's verdict. Classifier failures are returned as-is.
func (g *Grader) Grade(ctx context.Context, entityType EntityType, question string, doc Document) (Verdict, error) {
	score, err := g.model.Classify(ctx, entityType, question, doc.Content)
	if err != nil {
		return NotRelevant, err
	}
	return ParseVerdict(score), nil
}

// Rewriter turns a question into a search-friendly query.
type Rewriter struct {
	model RewriteModel
}

func NewRewriter(model RewriteModel) *Rewriter {
	return &Rewriter{model: model}
}

// Rewrite returns the model's reformulation, or the input question when the
// model answered with nothing.
func (r *Rewriter) Rewrite(ctx context.Context, entityType EntityType, question string) (string, error) {
	out, err := r.model.Rewrite(ctx, entityType, question)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return question, nil
	}
	return out, nil
}

// Extractor runs structured extraction over one document.
type Extractor struct {
	model ExtractModel
}

func NewExtractor(model ExtractModel) *Extractor {
	return &Extractor{model: model}
}

// Extract returns the entities of entityType found in doc. Blank documents
// return nothing without calling the model. Records of the wrong type or with
// no payload are dropped.
func (x *Extractor) Extract(ctx context.Context, entityType EntityType, question string, doc Document) ([]Entity, error) {
	if doc.IsBlank() {
		return nil, nil
	}
	got, err := x.model.Extract(ctx, entityType, question, doc.Content)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(got))
	for _, e := range got {
		if !e.matches(entityType) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
