package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	_ "modernc.org/sqlite"

	"github.com/cwillems/vantage/internal/embedding"
)

const snippetSchema = `
CREATE TABLE IF NOT EXISTS snippets (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL,
	text      TEXT NOT NULL,
	metadata  TEXT,
	embedding TEXT NOT NULL
);
`

// SQLiteStore persists snippets and their embeddings in a local SQLite
// database. Similarity is computed in-process at query time, which is
// fine for the corpus sizes an engagement knowledge base reaches.
type SQLiteStore struct {
	mu       sync.Mutex
	db       *sql.DB
	embedder embedding.Embedder
	log      zerolog.Logger
}

func NewSQLiteStore(path string, embedder embedding.Embedder, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open %s: %w", path, err)
	}
	if _, err := db.Exec(snippetSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("knowledge: init schema: %w", err)
	}
	return &SQLiteStore{db: db, embedder: embedder, log: log}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ingest(ctx context.Context, documents []string, metadatas []map[string]string) error {
	if len(documents) == 0 {
		return nil
	}
	if metadatas != nil && len(metadatas) != len(documents) {
		return fmt.Errorf("%w: %d documents, %d metadatas", ErrMetadataMismatch, len(documents), len(metadatas))
	}

	vecs, err := s.embedder.EmbedBatch(ctx, documents)
	if err != nil {
		return fmt.Errorf("knowledge: embed documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, doc := range documents {
		var meta map[string]string
		if metadatas != nil {
			meta = metadatas[i]
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		vecJSON, err := json.Marshal(vecs[i])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snippets (id, text, metadata, embedding) VALUES (?, ?, ?, ?)",
			uuid.NewString(), doc, string(metaJSON), string(vecJSON),
		); err != nil {
			return fmt.Errorf("knowledge: insert snippet: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug().Int("documents", len(documents)).Msg("ingested knowledge documents")
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, text string, k int) ([]Snippet, error) {
	if k <= 0 {
		k = 3
	}
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT seq, id, text, metadata, embedding FROM snippets")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type candidate struct {
		seq     int64
		snippet Snippet
	}
	var candidates []candidate

	for rows.Next() {
		var (
			seq               int64
			id, doc           string
			metaJSON, vecJSON string
		)
		if err := rows.Scan(&seq, &id, &doc, &metaJSON, &vecJSON); err != nil {
			return nil, err
		}
		var vec []float64
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			s.log.Warn().Str("id", id).Err(err).Msg("skipping snippet with unreadable embedding")
			continue
		}
		var meta map[string]string
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &meta)
		}
		candidates = append(candidates, candidate{
			seq: seq,
			snippet: Snippet{
				ID:        id,
				Text:      doc,
				Metadata:  meta,
				Embedding: vec,
				Score:     cosineSimilarity(queryVec, vec),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Best match first; equal scores fall back to insertion order so
	// results are deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].snippet.Score != candidates[j].snippet.Score {
			return candidates[i].snippet.Score > candidates[j].snippet.Score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Snippet, len(candidates))
	for i, c := range candidates {
		out[i] = c.snippet
	}
	return out, nil
}

// cosineSimilarity returns 0 for mismatched or zero-norm vectors rather
// than erroring; such snippets simply rank last.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
