// Package embedding generates vector embeddings for knowledge snippets
// and similarity queries.
package embedding

import "context"

// Embedder turns text into a dense vector. The knowledge store uses the
// same embedder for ingestion and queries, so vectors are comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch embeds multiple texts in one provider round-trip.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimensionality of produced vectors.
	Dimensions() int

	Name() string
}
