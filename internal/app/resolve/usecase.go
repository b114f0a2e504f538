// Package resolve runs one player action end to end: timer check, outcome
// resolution, signing, audit persistence and anomaly detection.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"soulforge/internal/app/ports"
	"soulforge/internal/app/ratetrack"
	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/outcome"
	"soulforge/internal/domain/tuning"
)

var (
	ErrInvalidRequest      = errors.New("invalid resolve request")
	ErrInvalidActionParams = errors.New("invalid action params")
	ErrTimerNotElapsed     = integrity.ErrTimerNotElapsed
)

type UseCase struct {
	TxManager ports.TxManager
	Audits    ports.OutcomeAuditRepository
	Rates     ratetrack.Tracker
	Engine    *outcome.Engine
	Config    *tuning.Config
	Timer     integrity.TimerPolicy
	Metrics   ports.OutcomeMetrics
	Logger    *slog.Logger
	Now       func() time.Time

	// Explain attaches the explanation to every outcome, not only to
	// requests that ask for it.
	Explain bool
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	req.Identity = integrity.NormalizeIdentity(req.Identity)
	req.ActionID = strings.TrimSpace(req.ActionID)
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.Action = outcome.ActionKind(strings.TrimSpace(string(req.Action)))
	if req.Identity == "" || req.StartedAt.IsZero() || !isSupportedAction(req.Action) {
		u.reject("invalid_request")
		return Response{}, ErrInvalidRequest
	}
	if !hasValidActionParams(req) {
		u.reject("invalid_params")
		return Response{}, ErrInvalidActionParams
	}
	if req.ActionID == "" {
		req.ActionID = uuid.NewString()
	}

	now := u.now()
	if req.DurationSeconds > 0 {
		duration := time.Duration(req.DurationSeconds * float64(time.Second))
		if ok, err := u.Timer.Validate(req.StartedAt, duration, now); !ok {
			u.reject("timer")
			return Response{}, err
		}
	}

	var out Response
	err := u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		prev, err := u.Audits.GetByAction(txCtx, req.Identity, req.ActionID)
		if err == nil {
			out, err = replayed(prev)
			return err
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return err
		}

		result, err := u.Engine.Resolve(u.outcomeContext(req))
		if err != nil {
			return err
		}
		signature := u.Engine.Keyring.Sign(req.Identity, req.ActionID, req.StartedAt, result.Signed())
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode outcome: %w", err)
		}

		rec := ports.OutcomeAuditRecord{
			ID:        uuid.NewString(),
			Identity:  req.Identity,
			ActionID:  req.ActionID,
			Action:    string(result.Action),
			Subtype:   result.Subtype,
			EntityID:  result.EntityID,
			Result:    string(result.Result),
			Seed:      result.Seed,
			Signature: signature,
			Payload:   payload,
			StartedAt: req.StartedAt,
			CreatedAt: now,
		}
		if err := u.Audits.Save(txCtx, rec); err != nil {
			return err
		}

		anomaly, err := u.checkAnomaly(txCtx, req, now)
		if err != nil {
			return err
		}

		out = Response{
			AuditID:   rec.ID,
			ActionID:  req.ActionID,
			Outcome:   result,
			Signature: signature,
			Anomaly:   anomaly,
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, outcome.ErrValidation), errors.Is(err, outcome.ErrConfigLookup):
			u.reject("validation")
		case errors.Is(err, ports.ErrConflict):
			u.reject("conflict")
		default:
			u.reject("internal")
		}
		return Response{}, err
	}

	u.logger().Debug("outcome resolved", "identity", req.Identity, "action_id", out.ActionID, "replayed", out.Replayed, "summary", out.Outcome.Summary())

	if u.Metrics != nil && !out.Replayed {
		u.Metrics.RecordOutcome(string(out.Outcome.Action), string(out.Outcome.Result))
		if out.Outcome.Feral != nil {
			u.Metrics.RecordFeral(string(out.Outcome.Action))
		}
		if out.Anomaly != "" {
			u.Metrics.RecordAnomaly(string(out.Outcome.Action))
		}
	}
	return out, nil
}

// PruneRateHistory drops rate history older than the tracker window.
func (u UseCase) PruneRateHistory(ctx context.Context) (int, error) {
	var n int
	err := u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		n, err = u.Rates.Prune(txCtx, u.now())
		return err
	})
	return n, err
}

func (u UseCase) checkAnomaly(ctx context.Context, req Request, now time.Time) (string, error) {
	rate, err := u.Rates.Record(ctx, req.Identity, string(req.Action), now)
	if err != nil {
		return "", fmt.Errorf("record rate: %w", err)
	}
	stats, err := u.Audits.StatsFor(ctx, req.Identity, string(req.Action), now.Add(-u.Config.AntiCheat.RateWindow))
	if err != nil {
		return "", fmt.Errorf("load outcome stats: %w", err)
	}
	observed := integrity.OutcomeStats{Attempts: stats.Attempts, Successes: stats.Successes}
	if req.Action == outcome.ActionExpedition {
		observed.BaseDeathProb = u.Config.Expedition.BaseDeathProb
	}
	limits := integrity.AnomalyLimits{
		MaxRatePerHour: u.Config.AntiCheat.MaxRatePerHour,
		SuccessMargin:  u.Config.AntiCheat.SuccessMargin,
		MinSamples:     u.Config.AntiCheat.MinSamples,
	}
	msg, flagged := integrity.DetectAnomaly(limits, req.Identity, string(req.Action), rate, observed)
	if !flagged {
		return "", nil
	}
	u.logger().Warn("outcome anomaly", "identity", req.Identity, "action", req.Action, "action_id", req.ActionID, "detail", msg)
	return msg, nil
}

func (u UseCase) outcomeContext(req Request) outcome.Context {
	return outcome.Context{
		Action:         req.Action,
		Entity:         req.Entity,
		Level:          req.Level,
		Practice:       req.Practice,
		Attention:      req.Attention,
		SlotDurability: req.SlotDurability,
		ExpeditionKind: req.ExpeditionKind,
		GatherResource: req.GatherResource,
		CloneKind:      req.CloneKind,
		SoulPercent:    req.SoulPercent,
		Config:         u.Config,
		ActiveSlots:    req.ActiveSlots,
		Debug:          req.Debug || u.Explain,
		Seed: integrity.SeedParts{
			Identity:      req.Identity,
			SlotID:        req.SlotID,
			StartedAt:     req.StartedAt,
			ConfigVersion: u.configVersion(),
			ActionID:      req.ActionID,
		},
	}
}

func (u UseCase) configVersion() string {
	if u.Config == nil {
		return ""
	}
	return u.Config.Version
}

func replayed(rec ports.OutcomeAuditRecord) (Response, error) {
	var prev outcome.Outcome
	if err := json.Unmarshal(rec.Payload, &prev); err != nil {
		return Response{}, fmt.Errorf("decode stored outcome %s: %w", rec.ID, err)
	}
	return Response{
		AuditID:   rec.ID,
		ActionID:  rec.ActionID,
		Outcome:   prev,
		Signature: rec.Signature,
		Replayed:  true,
	}, nil
}

func (u UseCase) reject(reason string) {
	if u.Metrics != nil {
		u.Metrics.RecordRejected(reason)
	}
}

func (u UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u UseCase) logger() *slog.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return slog.Default()
}

func isSupportedAction(a outcome.ActionKind) bool {
	switch a {
	case outcome.ActionExpedition, outcome.ActionGather, outcome.ActionGrow, outcome.ActionUpload:
		return true
	default:
		return false
	}
}

func hasValidActionParams(req Request) bool {
	switch req.Action {
	case outcome.ActionExpedition:
		return req.Entity != nil && strings.TrimSpace(req.ExpeditionKind) != ""
	case outcome.ActionGather:
		return strings.TrimSpace(req.GatherResource) != ""
	case outcome.ActionGrow:
		return strings.TrimSpace(req.CloneKind) != "" && req.Level > 0
	case outcome.ActionUpload:
		return req.Entity != nil
	default:
		return false
	}
}
