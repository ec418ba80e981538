package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS engagements (
	name         TEXT PRIMARY KEY,
	last_updated TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS interactions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	engagement TEXT NOT NULL REFERENCES engagements(name),
	timestamp  TEXT NOT NULL,
	command    TEXT NOT NULL,
	response   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_engagement ON interactions(engagement, seq);
`

// SQLiteLedger stores engagements and their interactions in a local
// SQLite database. The engagement row is created lazily on the first
// append and its last_updated field tracks the newest interaction.
type SQLiteLedger struct {
	mu  sync.Mutex
	db  *sql.DB
	log zerolog.Logger
}

func NewSQLiteLedger(path string, log zerolog.Logger) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	return &SQLiteLedger{db: db, log: log}, nil
}

func (l *SQLiteLedger) Close() error { return l.db.Close() }

func (l *SQLiteLedger) Append(ctx context.Context, engagementID, command, response, timestamp string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Timestamps within an engagement never go backwards: a stamp older
	// than the newest recorded one is clamped to it.
	var latest sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT MAX(timestamp) FROM interactions WHERE engagement = ?", engagementID,
	).Scan(&latest)
	if err != nil {
		return err
	}
	if latest.Valid && timestamp < latest.String {
		timestamp = latest.String
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO engagements (name, last_updated) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET last_updated = excluded.last_updated`,
		engagementID, timestamp,
	); err != nil {
		return fmt.Errorf("ledger: upsert engagement: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO interactions (engagement, timestamp, command, response) VALUES (?, ?, ?, ?)",
		engagementID, timestamp, command, response,
	); err != nil {
		return fmt.Errorf("ledger: insert interaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	l.log.Debug().Str("engagement", engagementID).Msg("recorded interaction")
	return nil
}

func (l *SQLiteLedger) Read(ctx context.Context, engagementID string) ([]Interaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		"SELECT timestamp, command, response FROM interactions WHERE engagement = ? ORDER BY seq",
		engagementID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Interaction{}
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.Timestamp, &it.Command, &it.Response); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
