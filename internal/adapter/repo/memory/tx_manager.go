package memory

import (
	"context"
	"maps"
	"slices"
	"time"

	"soulforge/internal/app/ports"
)

type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) TxManager {
	return TxManager{store: store}
}

// RunInTx serialises fn against every other transaction on the store and
// restores the pre-call state when fn fails. Calls must not nest.
func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	audits   map[string]ports.OutcomeAuditRecord
	byAction map[string]string
	rates    map[string][]time.Time
}

// snapshot copies the maps; rate slices are cloned because Append extends
// them in place.
func (s *Store) snapshot() storeSnapshot {
	rates := make(map[string][]time.Time, len(s.rates))
	for k, v := range s.rates {
		rates[k] = slices.Clone(v)
	}
	return storeSnapshot{
		audits:   maps.Clone(s.audits),
		byAction: maps.Clone(s.byAction),
		rates:    rates,
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.audits = snap.audits
	s.byAction = snap.byAction
	s.rates = snap.rates
}
