// Package ratetrack measures how often an identity performs an action over a
// sliding window. History lives in an injected store so several server
// processes can share it.
package ratetrack

import (
	"context"
	"errors"
	"strings"
	"time"

	"soulforge/internal/app/ports"
	"soulforge/internal/domain/integrity"
)

var ErrInvalidWindow = errors.New("rate window must be positive")

type Tracker struct {
	Store  ports.RateHistoryStore
	Window time.Duration
}

// Record appends one action at ts and returns the resulting rate in actions
// per hour over the trailing window.
func (t Tracker) Record(ctx context.Context, identity, action string, ts time.Time) (float64, error) {
	if t.Window <= 0 {
		return 0, ErrInvalidWindow
	}
	identity = integrity.NormalizeIdentity(identity)
	action = strings.TrimSpace(action)
	if err := t.Store.Append(ctx, identity, action, ts); err != nil {
		return 0, err
	}
	return t.Rate(ctx, identity, action, ts)
}

// Rate reports the current rate without recording anything.
func (t Tracker) Rate(ctx context.Context, identity, action string, now time.Time) (float64, error) {
	if t.Window <= 0 {
		return 0, ErrInvalidWindow
	}
	history, err := t.Store.Since(ctx, integrity.NormalizeIdentity(identity), strings.TrimSpace(action), now.Add(-t.Window))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, at := range history {
		if !at.After(now) {
			n++
		}
	}
	return float64(n) / t.Window.Hours(), nil
}

// Prune drops history that can no longer fall inside the window.
func (t Tracker) Prune(ctx context.Context, now time.Time) (int, error) {
	if t.Window <= 0 {
		return 0, ErrInvalidWindow
	}
	return t.Store.Prune(ctx, now.Add(-t.Window))
}
