package outcome

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"soulforge/internal/domain/integrity"
	"soulforge/internal/domain/tuning"
)

type ActionKind string

const (
	ActionExpedition ActionKind = "expedition"
	ActionGather     ActionKind = "gather"
	ActionGrow       ActionKind = "grow"
	ActionUpload     ActionKind = "upload"
)

type Result string

const (
	ResultSuccess Result = "success"
	ResultDeath   Result = "death"
	ResultFailure Result = "failure"
)

var (
	ErrValidation   = errors.New("outcome context validation failed")
	ErrConfigLookup = errors.New("unknown configuration key")
)

// ValidationError reports a missing required context field. It is always
// returned before any draw is taken from the seeded stream.
type ValidationError struct {
	Action ActionKind
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid %s: %v", e.Action, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s is required", e.Action, e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigLookupError reports a context key with no configuration entry.
type ConfigLookupError struct {
	Section string
	Key     string
}

func (e *ConfigLookupError) Error() string {
	return fmt.Sprintf("no %s configured for %q", e.Section, e.Key)
}

func (e *ConfigLookupError) Is(target error) bool { return target == ErrConfigLookup }

// Entity is the acting clone as supplied by the caller.
type Entity struct {
	ID           string             `json:"id"`
	Kind         string             `json:"kind"`
	Traits       map[string]float64 `json:"traits,omitempty"`
	XP           map[string]float64 `json:"xp,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	AssignedSlot string             `json:"assigned_slot,omitempty"`
}

func (e Entity) TotalXP() float64 {
	total := 0.0
	for _, track := range sortedKeys(e.XP) {
		total += e.XP[track]
	}
	return total
}

// AgeDays is the entity's biological age at the given instant.
func (e Entity) AgeDays(at time.Time) float64 {
	if e.CreatedAt.IsZero() || at.Before(e.CreatedAt) {
		return 0
	}
	return at.Sub(e.CreatedAt).Hours() / 24
}

// Context is everything one resolution reads. It lives for a single call.
type Context struct {
	Action         ActionKind
	Entity         *Entity
	Level          int
	Practice       map[string]int
	Attention      float64
	SlotDurability *float64
	ExpeditionKind string
	GatherResource string
	CloneKind      string
	SoulPercent    float64
	Config         *tuning.Config
	Seed           integrity.SeedParts
	ActiveSlots    int
	Debug          bool
}

func (c Context) subtype() string {
	switch c.Action {
	case ActionExpedition:
		return c.ExpeditionKind
	case ActionGather:
		return c.GatherResource
	case ActionGrow:
		return c.CloneKind
	default:
		return ""
	}
}

type TermMod struct {
	Source string  `json:"source"`
	Op     Op      `json:"op"`
	Value  float64 `json:"value"`
}

// Term is the audit trail of one channel: the configured base, the
// adjustments applied outside the Mod system, the Mods, and the final value.
type Term struct {
	Base        float64   `json:"base"`
	Adjustments []TermMod `json:"adjustments,omitempty"`
	Mods        []TermMod `json:"mods,omitempty"`
	Final       float64   `json:"final"`
}

type Terms map[Channel]Term

type FeralAttack struct {
	Band    tuning.Band `json:"band"`
	Action  ActionKind  `json:"action"`
	Chance  float64     `json:"chance"`
	Roll    float64     `json:"roll"`
	Effects []Mod       `json:"effects,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// EntityDelta is the state change the caller must apply to the acting
// entity.
type EntityDelta struct {
	Dead            bool               `json:"dead,omitempty"`
	Uploaded        bool               `json:"uploaded,omitempty"`
	XPLossFraction  float64            `json:"xp_loss_fraction,omitempty"`
	XPAfter         map[string]float64 `json:"xp_after,omitempty"`
	ClearAssignment bool               `json:"clear_assignment,omitempty"`
}

type Roll struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Outcome struct {
	Action         ActionKind         `json:"action"`
	Subtype        string             `json:"subtype,omitempty"`
	EntityID       string             `json:"entity_id,omitempty"`
	Result         Result             `json:"result"`
	Stats          CanonicalStats     `json:"stats"`
	Loot           map[string]int     `json:"loot"`
	XPGained       map[string]float64 `json:"xp_gained"`
	Mods           []Mod              `json:"mods"`
	Terms          Terms              `json:"terms"`
	Feral          *FeralAttack       `json:"feral,omitempty"`
	TimeSeconds    *float64           `json:"time_seconds,omitempty"`
	Cost           map[string]int     `json:"cost,omitempty"`
	CostMultiplier *float64           `json:"cost_multiplier,omitempty"`
	SoulSplit      *float64           `json:"soul_split,omitempty"`
	SoulXP         *float64           `json:"soul_xp,omitempty"`
	SoulRestore    *float64           `json:"soul_restore,omitempty"`
	SpawnKind      string             `json:"spawn_kind,omitempty"`
	EntityDelta    *EntityDelta       `json:"entity_delta,omitempty"`
	Rolls          []Roll             `json:"rolls"`
	Seed           uint64             `json:"seed"`
	Explanation    *Explanation       `json:"explanation,omitempty"`
}

// TotalXPGained sums every XP track of the outcome.
func (o Outcome) TotalXPGained() float64 {
	total := 0.0
	for _, track := range sortedKeys(o.XPGained) {
		total += o.XPGained[track]
	}
	return total
}

// Signed projects the outcome onto the fields covered by its signature.
func (o Outcome) Signed() integrity.SignedOutcome {
	return integrity.SignedOutcome{
		Result:   string(o.Result),
		EntityID: o.EntityID,
		Subtype:  o.Subtype,
		Loot:     o.Loot,
		XPGained: o.TotalXPGained(),
		Survived: o.Result != ResultDeath,
	}
}

func floatPtr(v float64) *float64 { return &v }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
