package resolve

import (
	"time"

	"soulforge/internal/domain/outcome"
)

type Request struct {
	Identity        string
	ActionID        string
	SlotID          string
	Action          outcome.ActionKind
	StartedAt       time.Time
	DurationSeconds float64

	Entity         *outcome.Entity
	Level          int
	Practice       map[string]int
	Attention      float64
	SlotDurability *float64
	ExpeditionKind string
	GatherResource string
	CloneKind      string
	SoulPercent    float64
	ActiveSlots    int
	Debug          bool
}

type Response struct {
	AuditID   string          `json:"audit_id"`
	ActionID  string          `json:"action_id"`
	Outcome   outcome.Outcome `json:"outcome"`
	Signature string          `json:"signature"`
	Anomaly   string          `json:"anomaly,omitempty"`
	Replayed  bool            `json:"replayed"`
}
