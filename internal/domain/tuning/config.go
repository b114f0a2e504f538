// Package tuning holds the gameplay configuration consumed by the outcome
// engine. Every tunable number lives here with a documented default; missing
// values are resolved once by Normalize instead of at each access site.
package tuning

import "time"

type Band string

const (
	BandNone   Band = ""
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// ModSpec is a configured Mod. Target and Op use the canonical channel and
// op names ("death_chance", "add").
type ModSpec struct {
	Target string  `yaml:"target" json:"target"`
	Op     string  `yaml:"op" json:"op"`
	Value  float64 `yaml:"value" json:"value"`
}

type Config struct {
	Version    string                 `yaml:"version"`
	Expedition ExpeditionConfig       `yaml:"expedition"`
	Gather     GatherConfig           `yaml:"gather"`
	Grow       GrowConfig             `yaml:"grow"`
	Upload     UploadConfig           `yaml:"upload"`
	Traits     map[string]TraitConfig `yaml:"traits"`
	Practice   PracticeConfig         `yaml:"practice"`
	Givebacks  GivebackConfig         `yaml:"givebacks"`
	Slots      SlotConfig             `yaml:"slots"`
	Attention  AttentionConfig        `yaml:"attention"`
	Feral      FeralConfig            `yaml:"feral"`
	AntiCheat  AntiCheatConfig        `yaml:"anti_cheat"`
}

type ExpeditionConfig struct {
	BaseDeathProb          float64                   `yaml:"base_death_prob"`
	AttentionGain          float64                   `yaml:"attention_gain"`
	BaseXP                 float64                   `yaml:"base_xp"`
	XPDeathReductionPer100 float64                   `yaml:"xp_death_reduction_per_100"`
	XPDeathReductionCap    float64                   `yaml:"xp_death_reduction_cap"`
	AgeDeathThresholdDays  float64                   `yaml:"age_death_threshold_days"`
	AgeDeathPerDay         float64                   `yaml:"age_death_per_day"`
	AgeDeathCap            float64                   `yaml:"age_death_cap"`
	DeathFloor             float64                   `yaml:"death_floor"`
	DeathCeiling           float64                   `yaml:"death_ceiling"`
	XPLoss                 Range                     `yaml:"xp_loss"`
	BonusDrop              BonusDrop                 `yaml:"bonus_drop"`
	Kinds                  map[string]ExpeditionKind `yaml:"kinds"`
}

type ExpeditionKind struct {
	XPMultiplier float64             `yaml:"xp_multiplier"`
	BaseSeconds  float64             `yaml:"base_seconds"`
	Loot         map[string]IntRange `yaml:"loot"`
}

type BonusDrop struct {
	Resource string   `yaml:"resource"`
	Chance   float64  `yaml:"chance"`
	Amount   IntRange `yaml:"amount"`
}

type GatherConfig struct {
	AttentionGain      float64                   `yaml:"attention_gain"`
	MinSeconds         float64                   `yaml:"min_seconds"`
	MaxSeconds         float64                   `yaml:"max_seconds"`
	SingleUnitResource string                    `yaml:"single_unit_resource"`
	Resources          map[string]GatherResource `yaml:"resources"`
}

type GatherResource struct {
	Amount  IntRange `yaml:"amount"`
	Seconds Range    `yaml:"seconds"`
}

type GrowConfig struct {
	BaseSuccessChance float64              `yaml:"base_success_chance"`
	AttentionGain     float64              `yaml:"attention_gain"`
	MinSeconds        float64              `yaml:"min_seconds"`
	MaxSeconds        float64              `yaml:"max_seconds"`
	MaxLevel          int                  `yaml:"max_level"`
	CostCurve         CostCurve            `yaml:"cost_curve"`
	Kinds             map[string]CloneKind `yaml:"kinds"`
}

// CostCurve is walked level by level; a breakpoint permanently scales the
// per-level slope from its level onwards.
type CostCurve struct {
	BaseMult    float64      `yaml:"base_mult"`
	PerLevelAdd float64      `yaml:"per_level_add"`
	Breakpoints []Breakpoint `yaml:"breakpoints"`
	MaxMult     float64      `yaml:"max_mult"`
}

type Breakpoint struct {
	Level  int     `yaml:"level"`
	Factor float64 `yaml:"factor"`
}

type CloneKind struct {
	SoulSplitBase     float64        `yaml:"soul_split_base"`
	SoulSplitVariance float64        `yaml:"soul_split_variance"`
	Seconds           Range          `yaml:"seconds"`
	Cost              map[string]int `yaml:"cost"`
}

type UploadConfig struct {
	AttentionGain   float64 `yaml:"attention_gain"`
	RetainMin       float64 `yaml:"retain_min"`
	RetainMax       float64 `yaml:"retain_max"`
	RestorePer100XP float64 `yaml:"restore_per_100_xp"`
	AgeK            float64 `yaml:"age_k"`
	AgeMaxBonus     float64 `yaml:"age_max_bonus"`
}

type TraitConfig struct {
	Neutral float64       `yaml:"neutral"`
	Effects []TraitEffect `yaml:"effects"`
}

type TraitEffect struct {
	Target   string   `yaml:"target"`
	Op       string   `yaml:"op"`
	PerPoint float64  `yaml:"per_point"`
	Cap      float64  `yaml:"cap"`
	Actions  []string `yaml:"actions"`
	// Incompatible replaces PerPoint and Cap when the expedition kind is
	// listed for the actor's kind.
	Incompatible *TraitVariant `yaml:"incompatible,omitempty"`
}

type TraitVariant struct {
	Pairs    map[string][]string `yaml:"pairs"`
	PerPoint float64             `yaml:"per_point"`
	Cap      float64             `yaml:"cap"`
}

type PracticeConfig struct {
	DeathReductionPerLevel float64 `yaml:"death_reduction_per_level"`
	DeathReductionCap      float64 `yaml:"death_reduction_cap"`
	TimeReductionPerLevel  float64 `yaml:"time_reduction_per_level"`
	TimeReductionCap       float64 `yaml:"time_reduction_cap"`
	RewardBonusPerLevel    float64 `yaml:"reward_bonus_per_level"`
	RewardBonusCap         float64 `yaml:"reward_bonus_cap"`
}

type GivebackConfig struct {
	XPPerLevel   float64 `yaml:"xp_per_level"`
	XPCap        float64 `yaml:"xp_cap"`
	TimePerLevel float64 `yaml:"time_per_level"`
	TimeCap      float64 `yaml:"time_cap"`
}

type SlotConfig struct {
	DurabilityThreshold   float64 `yaml:"durability_threshold"`
	DurabilityTimePenalty float64 `yaml:"durability_time_penalty"`
	DurabilityCostPenalty float64 `yaml:"durability_cost_penalty"`
	FreeSlots             int     `yaml:"free_slots"`
	OverloadTimePerSlot   float64 `yaml:"overload_time_per_slot"`
	OverloadTimeCap       float64 `yaml:"overload_time_cap"`
}

type AttentionConfig struct {
	YellowThreshold float64                       `yaml:"yellow_threshold"`
	RedThreshold    float64                       `yaml:"red_threshold"`
	Ambient         map[Band]map[string][]ModSpec `yaml:"ambient"`
}

type FeralConfig struct {
	AttackChance map[Band]float64            `yaml:"attack_chance"`
	Penalties    map[string]map[Band]ModSpec `yaml:"penalties"`
}

type AntiCheatConfig struct {
	MaxRatePerHour map[string]float64 `yaml:"max_rate_per_hour"`
	SuccessMargin  float64            `yaml:"success_margin"`
	MinSamples     int                `yaml:"min_samples"`
	RateWindow     time.Duration      `yaml:"rate_window"`
	TimerTolerance time.Duration      `yaml:"timer_tolerance"`
	LateCompletion time.Duration      `yaml:"late_completion"`
}

// BandFor classifies an attention value against the configured thresholds.
func (a AttentionConfig) BandFor(attention float64) Band {
	switch {
	case attention >= a.RedThreshold:
		return BandRed
	case attention >= a.YellowThreshold:
		return BandYellow
	default:
		return BandNone
	}
}

// LootKeys returns the loot resources of a kind in a stable order.
func (k ExpeditionKind) LootKeys() []string {
	return sortedKeys(k.Loot)
}

func (k CloneKind) CostKeys() []string {
	return sortedKeys(k.Cost)
}
