// Package ledger is the durable, append-only record of command/response
// interactions, grouped by engagement.
package ledger

import "context"

// Interaction is one recorded exchange. Records are immutable once
// appended and ordered by occurrence within their engagement.
type Interaction struct {
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
	Response  string `json:"response"`
}

// Ledger is the interface the orchestrator and the
// get_engagement_context tool consume.
//
// Append has at-least-once semantics: a retried write may record the
// same interaction twice, and callers tolerate duplicates rather than
// losing records. Read returns an empty slice, not an error, for an
// unknown engagement.
type Ledger interface {
	Append(ctx context.Context, engagementID, command, response, timestamp string) error
	Read(ctx context.Context, engagementID string) ([]Interaction, error)
}
