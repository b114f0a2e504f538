package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"soulforge/internal/app/ports"
	"soulforge/internal/app/resolve"
	"soulforge/internal/app/verify"
	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/outcome"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// identityHeader names the caller when the body leaves identity empty.
const identityHeader = "X-Soul-ID"

type Handler struct {
	ResolveUC resolve.UseCase
	VerifyUC  verify.UseCase
	KPI       kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	api := s.Group("/api/outcome")
	api.POST("/resolve", h.resolve)
	api.POST("/verify", h.verify)

	s.GET("/ops/kpi", h.kpi)
}

type resolveRequest struct {
	Identity        string          `json:"identity"`
	ActionID        string          `json:"action_id"`
	SlotID          string          `json:"slot_id"`
	Action          string          `json:"action"`
	StartedAt       time.Time       `json:"started_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	Entity          *outcome.Entity `json:"entity,omitempty"`
	Level           int             `json:"level"`
	Practice        map[string]int  `json:"practice,omitempty"`
	Attention       float64         `json:"attention"`
	SlotDurability  *float64        `json:"slot_durability,omitempty"`
	ExpeditionKind  string          `json:"expedition_kind,omitempty"`
	GatherResource  string          `json:"gather_resource,omitempty"`
	CloneKind       string          `json:"clone_kind,omitempty"`
	SoulPercent     float64         `json:"soul_percent"`
	ActiveSlots     int             `json:"active_slots"`
	Debug           bool            `json:"debug"`
}

type verifyRequest struct {
	AuditID   string                   `json:"audit_id,omitempty"`
	Identity  string                   `json:"identity,omitempty"`
	ActionID  string                   `json:"action_id,omitempty"`
	StartedAt time.Time                `json:"started_at"`
	Outcome   *integrity.SignedOutcome `json:"outcome,omitempty"`
	Signature string                   `json:"signature,omitempty"`
}

func (h Handler) resolve(c context.Context, ctx *app.RequestContext) {
	var body resolveRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.Identity == "" {
		body.Identity = strings.TrimSpace(string(ctx.GetHeader(identityHeader)))
	}

	resp, err := h.ResolveUC.Execute(c, resolve.Request{
		Identity:        body.Identity,
		ActionID:        body.ActionID,
		SlotID:          body.SlotID,
		Action:          outcome.ActionKind(body.Action),
		StartedAt:       body.StartedAt,
		DurationSeconds: body.DurationSeconds,
		Entity:          body.Entity,
		Level:           body.Level,
		Practice:        body.Practice,
		Attention:       body.Attention,
		SlotDurability:  body.SlotDurability,
		ExpeditionKind:  body.ExpeditionKind,
		GatherResource:  body.GatherResource,
		CloneKind:       body.CloneKind,
		SoulPercent:     body.SoulPercent,
		ActiveSlots:     body.ActiveSlots,
		Debug:           body.Debug,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, resp)
}

// verify checks a stored audit when no signature is presented, and the
// presented payload otherwise.
func (h Handler) verify(c context.Context, ctx *app.RequestContext) {
	var body verifyRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.Identity == "" {
		body.Identity = strings.TrimSpace(string(ctx.GetHeader(identityHeader)))
	}

	var (
		resp verify.Response
		err  error
	)
	if body.Signature == "" {
		resp, err = h.VerifyUC.Stored(c, verify.Request{
			AuditID:  body.AuditID,
			Identity: body.Identity,
			ActionID: body.ActionID,
		})
	} else {
		if body.Outcome == nil {
			writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "outcome is required with a signature")
			return
		}
		resp, err = h.VerifyUC.Payload(c, verify.PayloadRequest{
			Identity:  body.Identity,
			ActionID:  body.ActionID,
			StartedAt: body.StartedAt,
			Outcome:   *body.Outcome,
			Signature: body.Signature,
		})
	}
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	var timerErr *integrity.TimerError
	switch {
	case errors.As(err, &timerErr):
		writeErrorDetails(ctx, consts.StatusConflict, "timer_not_elapsed", err.Error(), map[string]any{
			"remaining_seconds": timerErr.Remaining.Seconds(),
		})
	case errors.Is(err, integrity.ErrTimerNotElapsed):
		writeErrorBody(ctx, consts.StatusConflict, "timer_not_elapsed", err.Error())
	case errors.Is(err, resolve.ErrInvalidActionParams):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_action_params", err.Error())
	case errors.Is(err, resolve.ErrInvalidRequest),
		errors.Is(err, verify.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, outcome.ErrValidation):
		details := map[string]any{}
		var vErr *outcome.ValidationError
		if errors.As(err, &vErr) {
			details["field"] = vErr.Field
		}
		writeErrorDetails(ctx, consts.StatusUnprocessableEntity, "invalid_context", err.Error(), details)
	case errors.Is(err, outcome.ErrConfigLookup):
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "unknown_config_key", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeErrorDetails(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	ctx.JSON(status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
