// Package knowledge holds embedded text snippets and answers top-k
// similarity queries used to ground model prompts.
package knowledge

import (
	"context"
	"errors"
)

// ErrMetadataMismatch is returned by Ingest when the metadata slice is
// present but its length differs from the document slice.
var ErrMetadataMismatch = errors.New("knowledge: metadatas length does not match documents length")

// Snippet is an immutable ingested document. Re-ingesting the same text
// creates a new snippet; nothing is mutated in place.
type Snippet struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"embedding,omitempty"`

	// Score is the similarity to the query that retrieved this
	// snippet. Only set on Query results.
	Score float64 `json:"score,omitempty"`
}

// Store is the interface the orchestrator and the knowledge_search tool
// consume.
type Store interface {
	// Ingest embeds and persists each document. metadatas may be nil;
	// if present it must be parallel to documents.
	Ingest(ctx context.Context, documents []string, metadatas []map[string]string) error

	// Query returns up to k snippets, best match first. Ties are broken
	// by insertion order, earlier-ingested first.
	Query(ctx context.Context, text string, k int) ([]Snippet, error)
}
