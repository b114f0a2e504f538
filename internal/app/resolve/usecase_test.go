package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"soulforge/internal/domain/outcome"

	"github.com/google/go-cmp/cmp"
)

func gatherRequest(f *fixture, actionID string) Request {
	return Request{
		Identity:        "Player@Example.com",
		ActionID:        actionID,
		SlotID:          "slot-1",
		Action:          outcome.ActionGather,
		StartedAt:       f.now.Add(-2 * time.Minute),
		DurationSeconds: 60,
		GatherResource:  "scrap",
	}
}

func TestExecute_ResolvesSignsAndAudits(t *testing.T) {
	f := newFixture(t)
	resp, err := f.uc.Execute(context.Background(), gatherRequest(f, "act-1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Outcome.Result != outcome.ResultSuccess || resp.Outcome.Loot["scrap"] == 0 {
		t.Fatalf("unexpected outcome: %+v", resp.Outcome)
	}
	if f.audits.saves != 1 {
		t.Fatalf("expected one audit record, got %d", f.audits.saves)
	}
	rec, err := f.audits.Get(context.Background(), resp.AuditID)
	if err != nil {
		t.Fatalf("audit record missing: %v", err)
	}
	if rec.Identity != "player@example.com" || rec.Signature != resp.Signature {
		t.Fatalf("unexpected audit record: %+v", rec)
	}
	ok, msg := f.uc.Engine.Keyring.Verify(rec.Identity, rec.ActionID, rec.StartedAt, resp.Outcome.Signed(), resp.Signature)
	if !ok {
		t.Fatalf("signature does not verify: %s", msg)
	}
	if f.metrics.outcomes["gather:success"] != 1 {
		t.Fatalf("expected outcome metric, got %+v", f.metrics.outcomes)
	}
}

func TestExecute_LogsOutcomeSummary(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	f.uc.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	resp, err := f.uc.Execute(context.Background(), gatherRequest(f, "act-log"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, "outcome resolved") || !strings.Contains(line, "action_id=act-log") {
		t.Fatalf("expected resolve log line, got %q", line)
	}
	if !strings.Contains(line, resp.Outcome.Summary()) {
		t.Fatalf("expected summary %q in log, got %q", resp.Outcome.Summary(), line)
	}
}

func TestExecute_ReplaysSameAction(t *testing.T) {
	f := newFixture(t)
	first, err := f.uc.Execute(context.Background(), gatherRequest(f, "act-dup"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	second, err := f.uc.Execute(context.Background(), gatherRequest(f, "act-dup"))
	if err != nil {
		t.Fatalf("Execute replay: %v", err)
	}
	if !second.Replayed || second.AuditID != first.AuditID || second.Signature != first.Signature {
		t.Fatalf("expected replay of first response, got %+v", second)
	}
	if diff := cmp.Diff(first.Outcome.Loot, second.Outcome.Loot); diff != "" {
		t.Fatalf("replayed loot differs (-first +second):\n%s", diff)
	}
	if f.audits.saves != 1 {
		t.Fatalf("replay must not persist again, got %d saves", f.audits.saves)
	}
}

func TestExecute_GeneratesActionID(t *testing.T) {
	f := newFixture(t)
	resp, err := f.uc.Execute(context.Background(), gatherRequest(f, ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(resp.ActionID) != 36 {
		t.Fatalf("expected generated uuid action id, got %q", resp.ActionID)
	}
}

func TestExecute_RejectsEarlyCompletion(t *testing.T) {
	f := newFixture(t)
	req := gatherRequest(f, "act-early")
	req.StartedAt = f.now.Add(-30 * time.Second)
	_, err := f.uc.Execute(context.Background(), req)
	if !errors.Is(err, ErrTimerNotElapsed) {
		t.Fatalf("expected ErrTimerNotElapsed, got %v", err)
	}
	if f.audits.saves != 0 || f.metrics.rejected["timer"] != 1 {
		t.Fatalf("early completion must not resolve: saves=%d rejected=%v", f.audits.saves, f.metrics.rejected)
	}
}

func TestExecute_RequestValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		mut  func(*Request)
		want error
	}{
		{"missing identity", func(r *Request) { r.Identity = " " }, ErrInvalidRequest},
		{"missing start", func(r *Request) { r.StartedAt = time.Time{} }, ErrInvalidRequest},
		{"unknown action", func(r *Request) { r.Action = "dance" }, ErrInvalidRequest},
		{"gather without resource", func(r *Request) { r.GatherResource = "" }, ErrInvalidActionParams},
		{"expedition without entity", func(r *Request) { r.Action = outcome.ActionExpedition; r.ExpeditionKind = "salvage" }, ErrInvalidActionParams},
		{"unknown resource", func(r *Request) { r.GatherResource = "unobtainium" }, outcome.ErrConfigLookup},
	}
	for _, tc := range cases {
		req := gatherRequest(f, "act-"+tc.name)
		tc.mut(&req)
		if _, err := f.uc.Execute(context.Background(), req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if f.audits.saves != 0 {
		t.Fatalf("rejected requests must not be audited")
	}
}

func TestExecute_FlagsRateAnomaly(t *testing.T) {
	f := newFixture(t)
	f.uc.Config.AntiCheat.MaxRatePerHour["gather"] = 3
	var last Response
	for i := 0; i < 5; i++ {
		resp, err := f.uc.Execute(context.Background(), gatherRequest(f, fmt.Sprintf("burst-%d", i)))
		if err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
		last = resp
	}
	if last.Anomaly == "" {
		t.Fatalf("expected the fifth gather in an hour to be flagged")
	}
	if f.metrics.anomalies != 2 {
		t.Fatalf("expected anomalies on the 4th and 5th request, got %d", f.metrics.anomalies)
	}
}
