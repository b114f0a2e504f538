package ports

import (
	"context"
	"time"
)

// OutcomeAuditRecord is the persisted trace of one resolution. Payload holds
// the JSON outcome; Signature covers the signed subset of it.
type OutcomeAuditRecord struct {
	ID        string
	Identity  string
	ActionID  string
	Action    string
	Subtype   string
	EntityID  string
	Result    string
	Seed      uint64
	Signature string
	Payload   []byte
	StartedAt time.Time
	CreatedAt time.Time
}

type OutcomeStats struct {
	Attempts  int
	Successes int
}

type OutcomeAuditRepository interface {
	Save(ctx context.Context, rec OutcomeAuditRecord) error
	Get(ctx context.Context, id string) (OutcomeAuditRecord, error)
	GetByAction(ctx context.Context, identity, actionID string) (OutcomeAuditRecord, error)
	StatsFor(ctx context.Context, identity, action string, since time.Time) (OutcomeStats, error)
}

// RateHistoryStore keeps per-identity action timestamps for the rate
// tracker. Implementations must be safe to share between requests.
type RateHistoryStore interface {
	Append(ctx context.Context, identity, action string, at time.Time) error
	Since(ctx context.Context, identity, action string, since time.Time) ([]time.Time, error)
	Prune(ctx context.Context, before time.Time) (int, error)
}
