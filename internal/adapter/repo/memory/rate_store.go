package memory

import (
	"context"
	"time"
)

type RateHistoryStore struct {
	store *Store
}

func NewRateHistoryStore(store *Store) RateHistoryStore {
	return RateHistoryStore{store: store}
}

func (r RateHistoryStore) Append(_ context.Context, identity, action string, at time.Time) error {
	k := actionKey(identity, action)
	r.store.rates[k] = append(r.store.rates[k], at)
	return nil
}

func (r RateHistoryStore) Since(_ context.Context, identity, action string, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, at := range r.store.rates[actionKey(identity, action)] {
		if !at.Before(since) {
			out = append(out, at)
		}
	}
	return out, nil
}

func (r RateHistoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	removed := 0
	for k, history := range r.store.rates {
		kept := history[:0]
		for _, at := range history {
			if at.Before(before) {
				removed++
				continue
			}
			kept = append(kept, at)
		}
		if len(kept) == 0 {
			delete(r.store.rates, k)
			continue
		}
		r.store.rates[k] = kept
	}
	return removed, nil
}
