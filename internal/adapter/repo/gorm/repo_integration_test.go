package gormrepo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"soulforge/internal/app/ports"
	"soulforge/migrations"

	"gorm.io/gorm"
)

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SOULFORGE_DB_DSN")
	if dsn == "" {
		t.Skip("SOULFORGE_DB_DSN is required for integration test")
	}
	db, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if _, err := ApplyMigrations(context.Background(), db, migrations.FS, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func TestOutcomeAuditRepo_RoundTripAndConflict(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	identity := "it-audit-roundtrip"
	_ = db.Exec("DELETE FROM outcome_audits WHERE identity = ?", identity).Error

	repo := NewOutcomeAuditRepo(db)
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := ports.OutcomeAuditRecord{
		ID:        "it-audit-1",
		Identity:  identity,
		ActionID:  "act-1",
		Action:    "expedition",
		Subtype:   "salvage",
		EntityID:  "clone-1",
		Result:    "success",
		Seed:      18446744073709551615,
		Signature: "abc",
		Payload:   []byte(`{"result":"success"}`),
		StartedAt: now.Add(-time.Minute),
		CreatedAt: now,
	}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.GetByAction(ctx, identity, "act-1")
	if err != nil {
		t.Fatalf("get by action: %v", err)
	}
	if got.ID != rec.ID || got.Seed != rec.Seed || got.Subtype != "salvage" {
		t.Fatalf("unexpected round trip: %+v", got)
	}

	dup := rec
	dup.ID = "it-audit-2"
	if err := repo.Save(ctx, dup); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("expected conflict on duplicate action id, got %v", err)
	}

	stats, err := repo.StatsFor(ctx, identity, "expedition", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Attempts != 1 || stats.Successes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, err := repo.Get(ctx, "it-audit-missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRateHistoryStore_AppendSincePrune(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	identity := "it-rate-history"
	_ = db.Exec("DELETE FROM rate_events WHERE identity = ?", identity).Error

	store := NewRateHistoryStore(db)
	start := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		if err := store.Append(ctx, identity, "gather", start.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := store.Since(ctx, identity, "gather", start.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(got) != 2 || !got[0].Before(got[1]) {
		t.Fatalf("expected two ordered entries, got %v", got)
	}
	if _, err := store.Prune(ctx, start.Add(30*time.Minute)); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got, _ := store.Since(ctx, identity, "gather", start.Add(-time.Hour)); len(got) != 2 {
		t.Fatalf("expected prune to drop the oldest entry, got %v", got)
	}
}

func TestTxManager_RunInTxCommitAndRollback(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	identity := "it-tx-manager"
	_ = db.Exec("DELETE FROM rate_events WHERE identity = ?", identity).Error

	txManager := NewTxManager(db)
	store := NewRateHistoryStore(db)
	at := time.Now().UTC()

	if err := txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return store.Append(txCtx, identity, "grow", at)
	}); err != nil {
		t.Fatalf("commit tx failed: %v", err)
	}

	rollbackErr := txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := store.Append(txCtx, identity, "upload", at); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	if rollbackErr == nil {
		t.Fatalf("expected rollback error")
	}

	committed, _ := store.Since(ctx, identity, "grow", at.Add(-time.Minute))
	rolledBack, _ := store.Since(ctx, identity, "upload", at.Add(-time.Minute))
	if len(committed) != 1 || len(rolledBack) != 0 {
		t.Fatalf("expected commit to persist and rollback to discard, got %d/%d", len(committed), len(rolledBack))
	}
}
