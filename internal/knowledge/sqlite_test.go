package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// letterFreqEmbedder produces deterministic vectors from letter
// frequencies. Identical texts get identical vectors, so
// self-similarity is maximal, and overlapping vocabulary scores higher
// than unrelated text.
type letterFreqEmbedder struct{}

func (letterFreqEmbedder) Name() string    { return "letter-freq" }
func (letterFreqEmbedder) Dimensions() int { return 26 }

func (e letterFreqEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, 26)
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			vec[r-'a']++
		case r >= 'A' && r <= 'Z':
			vec[r-'A']++
		}
	}
	return vec, nil
}

func (e letterFreqEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

type failingEmbedder struct{ letterFreqEmbedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("embedding backend offline")
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "knowledge.db"), letterFreqEmbedder{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIngestAndQueryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []string{
		"SQL Injection is a code injection technique that targets database queries.",
		"Port scanning with Nmap discovers open ports and running services.",
		"XSS allows attackers to inject malicious scripts into web pages.",
	}
	if err := store.Ingest(ctx, docs, nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Querying with the exact document text returns that document as
	// the top match: self-similarity is maximal.
	got, err := store.Query(ctx, docs[1], 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query returned %d snippets, want 3", len(got))
	}
	if got[0].Text != docs[1] {
		t.Errorf("top match = %q, want the queried document", got[0].Text)
	}
	if got[0].Score < got[1].Score || got[1].Score < got[2].Score {
		t.Errorf("results not ordered best-first: %v, %v, %v", got[0].Score, got[1].Score, got[2].Score)
	}
	if got[0].ID == "" {
		t.Error("snippet ID not populated")
	}
}

func TestQueryEmptyStore(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Query(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Query on empty store: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty store returned %d snippets", len(got))
	}
}

func TestIngestMetadataMismatch(t *testing.T) {
	store := newTestStore(t)
	err := store.Ingest(context.Background(),
		[]string{"one", "two"},
		[]map[string]string{{"source": "a"}},
	)
	if !errors.Is(err, ErrMetadataMismatch) {
		t.Fatalf("got %v, want ErrMetadataMismatch", err)
	}
}

func TestIngestPersistsMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Ingest(ctx,
		[]string{"privilege escalation via sudo misconfiguration"},
		[]map[string]string{{"source": "owasp", "topic": "privesc"}},
	)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	got, err := store.Query(ctx, "sudo privilege escalation", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query returned %d snippets, want 1", len(got))
	}
	if got[0].Metadata["source"] != "owasp" || got[0].Metadata["topic"] != "privesc" {
		t.Errorf("metadata not preserved: %v", got[0].Metadata)
	}
}

func TestQueryTieBreaksByInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Identical texts embed identically, so scores tie exactly.
	if err := store.Ingest(ctx, []string{"same text"}, []map[string]string{{"order": "first"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Ingest(ctx, []string{"same text"}, []map[string]string{{"order": "second"}}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Query(ctx, "same text", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d snippets, want 2", len(got))
	}
	if got[0].Metadata["order"] != "first" {
		t.Errorf("tie broken wrong: got %q first, want the earlier-ingested snippet", got[0].Metadata["order"])
	}
}

func TestReingestionCreatesNewSnippets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ingest(ctx, []string{"duplicate document"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := store.Ingest(ctx, []string{"duplicate document"}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := store.Query(ctx, "duplicate document", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("re-ingestion should add a snippet, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Error("re-ingested snippet shares an ID with the original")
	}
}

func TestIngestEmbedderFailure(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "k.db"), failingEmbedder{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if err := store.Ingest(context.Background(), []string{"doc"}, nil); err == nil {
		t.Fatal("Ingest with a failing embedder must error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"zero norm", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 2}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tc.want)
			}
		})
	}
}
