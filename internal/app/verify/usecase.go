// Package verify re-checks outcome signatures, either for a persisted audit
// record or for a payload a client presents.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"soulforge/internal/app/ports"
	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/outcome"
)

var ErrInvalidRequest = errors.New("invalid verify request")

type Request struct {
	AuditID  string
	Identity string
	ActionID string
}

type PayloadRequest struct {
	Identity  string
	ActionID  string
	StartedAt time.Time
	Outcome   integrity.SignedOutcome
	Signature string
}

type Response struct {
	AuditID string `json:"audit_id,omitempty"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

type UseCase struct {
	TxManager ports.TxManager
	Audits    ports.OutcomeAuditRepository
	Keyring   integrity.Keyring
	Metrics   ports.OutcomeMetrics
}

// Stored loads an audit record by id, or by identity and action id, and
// verifies its signature against the stored outcome.
func (u UseCase) Stored(ctx context.Context, req Request) (Response, error) {
	req.AuditID = strings.TrimSpace(req.AuditID)
	req.Identity = integrity.NormalizeIdentity(req.Identity)
	req.ActionID = strings.TrimSpace(req.ActionID)
	if req.AuditID == "" && (req.Identity == "" || req.ActionID == "") {
		return Response{}, ErrInvalidRequest
	}

	var rec ports.OutcomeAuditRecord
	err := u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if req.AuditID != "" {
			rec, err = u.Audits.Get(txCtx, req.AuditID)
		} else {
			rec, err = u.Audits.GetByAction(txCtx, req.Identity, req.ActionID)
		}
		return err
	})
	if err != nil {
		return Response{}, err
	}

	var stored outcome.Outcome
	if err := json.Unmarshal(rec.Payload, &stored); err != nil {
		return Response{}, fmt.Errorf("decode stored outcome %s: %w", rec.ID, err)
	}
	ok, msg := u.Keyring.Verify(rec.Identity, rec.ActionID, rec.StartedAt, stored.Signed(), rec.Signature)
	u.observe(ok)
	return Response{AuditID: rec.ID, Valid: ok, Message: msg}, nil
}

// Payload verifies a signature presented together with the signed fields.
func (u UseCase) Payload(_ context.Context, req PayloadRequest) (Response, error) {
	if integrity.NormalizeIdentity(req.Identity) == "" || strings.TrimSpace(req.ActionID) == "" || req.StartedAt.IsZero() {
		return Response{}, ErrInvalidRequest
	}
	ok, msg := u.Keyring.Verify(req.Identity, req.ActionID, req.StartedAt, req.Outcome, req.Signature)
	u.observe(ok)
	return Response{Valid: ok, Message: msg}, nil
}

func (u UseCase) observe(ok bool) {
	if u.Metrics != nil && !ok {
		u.Metrics.RecordRejected("signature")
	}
}
