package resolve

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"soulforge/internal/app/ports"
	"soulforge/internal/app/ratetrack"
	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/outcome"
	"soulforge/internal/domain/tuning"
)

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubAuditRepo struct {
	byID  map[string]ports.OutcomeAuditRecord
	saves int
}

func newStubAuditRepo() *stubAuditRepo {
	return &stubAuditRepo{byID: map[string]ports.OutcomeAuditRecord{}}
}

func (r *stubAuditRepo) Save(_ context.Context, rec ports.OutcomeAuditRecord) error {
	if _, ok := r.byID[rec.ID]; ok {
		return ports.ErrConflict
	}
	r.byID[rec.ID] = rec
	r.saves++
	return nil
}

func (r *stubAuditRepo) Get(_ context.Context, id string) (ports.OutcomeAuditRecord, error) {
	rec, ok := r.byID[id]
	if !ok {
		return ports.OutcomeAuditRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

func (r *stubAuditRepo) GetByAction(_ context.Context, identity, actionID string) (ports.OutcomeAuditRecord, error) {
	for _, rec := range r.byID {
		if rec.Identity == identity && rec.ActionID == actionID {
			return rec, nil
		}
	}
	return ports.OutcomeAuditRecord{}, ports.ErrNotFound
}

func (r *stubAuditRepo) StatsFor(_ context.Context, identity, action string, since time.Time) (ports.OutcomeStats, error) {
	var s ports.OutcomeStats
	for _, rec := range r.byID {
		if rec.Identity != identity || rec.Action != action || rec.CreatedAt.Before(since) {
			continue
		}
		s.Attempts++
		if rec.Result == string(outcome.ResultSuccess) {
			s.Successes++
		}
	}
	return s, nil
}

type stubRateStore struct {
	history map[string][]time.Time
}

func (s *stubRateStore) Append(_ context.Context, identity, action string, at time.Time) error {
	s.history[identity+"|"+action] = append(s.history[identity+"|"+action], at)
	return nil
}

func (s *stubRateStore) Since(_ context.Context, identity, action string, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, at := range s.history[identity+"|"+action] {
		if !at.Before(since) {
			out = append(out, at)
		}
	}
	return out, nil
}

func (s *stubRateStore) Prune(context.Context, time.Time) (int, error) { return 0, nil }

type stubMetrics struct {
	outcomes  map[string]int
	rejected  map[string]int
	anomalies int
	ferals    int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{outcomes: map[string]int{}, rejected: map[string]int{}}
}

func (m *stubMetrics) RecordOutcome(action, result string) { m.outcomes[action+":"+result]++ }
func (m *stubMetrics) RecordFeral(string)                  { m.ferals++ }
func (m *stubMetrics) RecordAnomaly(string)                { m.anomalies++ }
func (m *stubMetrics) RecordRejected(reason string)        { m.rejected[reason]++ }

type fixture struct {
	uc      UseCase
	audits  *stubAuditRepo
	metrics *stubMetrics
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keyring, err := integrity.NewKeyring([]byte("resolve-secret"))
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	cfg := tuning.Default()
	cfg.Normalize()
	engine := outcome.NewEngine(keyring)
	engine.Entropy = func() float64 { return 0.5 }
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		audits:  newStubAuditRepo(),
		metrics: newStubMetrics(),
		now:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	timer := integrity.DefaultTimerPolicy()
	timer.Logger = quiet
	f.uc = UseCase{
		TxManager: stubTxManager{},
		Audits:    f.audits,
		Rates:     ratetrack.Tracker{Store: &stubRateStore{history: map[string][]time.Time{}}, Window: time.Hour},
		Engine:    engine,
		Config:    &cfg,
		Timer:     timer,
		Metrics:   f.metrics,
		Logger:    quiet,
		Now:       func() time.Time { return f.now },
	}
	return f
}
