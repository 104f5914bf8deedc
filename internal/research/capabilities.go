package research

import "context"

// Hit is one raw search result before hydration.
type Hit struct {
	Title string
	URL   string
}

// Backend is a web search API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]Hit, error)
}

// Fetcher renders a URL into text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ClassifyModel returns the binary relevance score ("yes" or "no") of a
// document for a question.
type ClassifyModel interface {
	Classify(ctx context.Context, entityType EntityType, question, content string) (string, error)
}

// RewriteModel reformulates a question into a better web query.
type RewriteModel interface {
	Rewrite(ctx context.Context, entityType EntityType, question string) (string, error)
}

// ExtractModel pulls schema-typed records out of a document.
type ExtractModel interface {
	Extract(ctx context.Context, entityType EntityType, question, content string) ([]Entity, error)
}

// SearchProvider is the search node. It never returns an empty slice.
type SearchProvider interface {
	Search(ctx context.Context, query string, count int) []Document
}

// RelevanceGrader is the grading node.
type RelevanceGrader interface {
	Grade(ctx context.Context, entityType EntityType, question string, doc Document) (Verdict, error)
}

// QueryRewriter is the rewrite node.
type QueryRewriter interface {
	Rewrite(ctx context.Context, entityType EntityType, question string) (string, error)
}

// EntityExtractor is the extraction node.
type EntityExtractor interface {
	Extract(ctx context.Context, entityType EntityType, question string, doc Document) ([]Entity, error)
}
