package memory

import (
	"context"
	"time"

	"soulforge/internal/app/ports"
)

type OutcomeAuditRepo struct {
	store *Store
}

func NewOutcomeAuditRepo(store *Store) OutcomeAuditRepo {
	return OutcomeAuditRepo{store: store}
}

func (r OutcomeAuditRepo) Save(_ context.Context, rec ports.OutcomeAuditRecord) error {
	k := actionKey(rec.Identity, rec.ActionID)
	if _, exists := r.store.byAction[k]; exists {
		return ports.ErrConflict
	}
	if _, exists := r.store.audits[rec.ID]; exists {
		return ports.ErrConflict
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	r.store.audits[rec.ID] = rec
	r.store.byAction[k] = rec.ID
	return nil
}

func (r OutcomeAuditRepo) Get(_ context.Context, id string) (ports.OutcomeAuditRecord, error) {
	rec, ok := r.store.audits[id]
	if !ok {
		return ports.OutcomeAuditRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

func (r OutcomeAuditRepo) GetByAction(ctx context.Context, identity, actionID string) (ports.OutcomeAuditRecord, error) {
	id, ok := r.store.byAction[actionKey(identity, actionID)]
	if !ok {
		return ports.OutcomeAuditRecord{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r OutcomeAuditRepo) StatsFor(_ context.Context, identity, action string, since time.Time) (ports.OutcomeStats, error) {
	var stats ports.OutcomeStats
	for _, rec := range r.store.audits {
		if rec.Identity != identity || rec.Action != action || rec.CreatedAt.Before(since) {
			continue
		}
		stats.Attempts++
		if rec.Result == "success" {
			stats.Successes++
		}
	}
	return stats, nil
}
