package domain

import "context"

// Summary is the output of the summarization service: free text plus an
// ordered shopping/packing list.
type Summary struct {
	Text  string
	Items []string
}

// Summarizer turns a conversation transcript into a summary and item list.
// Adapters convert internal failures into a degraded default with at least
// one item rather than returning an error.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (Summary, error)
}

// Product is a catalog listing matched to a list item.
type Product struct {
	Name  string
	Price *float64
	URL   string
}

// Enricher matches a free-text item name to catalog products. An empty
// slice means no match; adapters do not propagate internal failures.
type Enricher interface {
	Lookup(ctx context.Context, item string) ([]Product, error)
}
