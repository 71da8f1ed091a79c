package history

import (
	"context"
	"time"
)

// ActionRecord stores the outcome of one pipeline action for auditing.
type ActionRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Store persists and retrieves action history.
type Store interface {
	RecordAction(ctx context.Context, record ActionRecord) error
	RecentActions(ctx context.Context, limit int) ([]ActionRecord, error)
	Close() error
}
