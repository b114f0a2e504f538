package tuning

import (
	"sort"
	"time"
)

const (
	DefaultExpeditionBaseDeathProb = 0.12
	DefaultExpeditionBaseXP        = 10.0
	DefaultExpeditionSeconds       = 120.0

	DefaultXPDeathReductionPer100 = 0.02
	DefaultXPDeathReductionCap    = 0.10

	DefaultGatherMinSeconds = 1.0
	DefaultGatherMaxSeconds = 300.0
	DefaultGrowMinSeconds   = 1.0
	DefaultGrowMaxSeconds   = 600.0
	DefaultGrowMaxLevel     = 1000

	DefaultSingleUnitResource = "relic"

	DefaultCostBaseMult    = 1.0
	DefaultCostPerLevelAdd = 0.02
	DefaultCostMaxMult     = 4.0

	DefaultYellowThreshold = 50.0
	DefaultRedThreshold    = 80.0

	DefaultTimerTolerance = time.Second
	DefaultLateCompletion = 600 * time.Second
	DefaultRateWindow     = time.Hour
)

// Default returns the complete documented configuration. Callers may decode
// a document over it; anything the document omits keeps these values.
func Default() Config {
	return Config{
		Version: "defaults",
		Expedition: ExpeditionConfig{
			BaseDeathProb:          DefaultExpeditionBaseDeathProb,
			AttentionGain:          4,
			BaseXP:                 DefaultExpeditionBaseXP,
			XPDeathReductionPer100: DefaultXPDeathReductionPer100,
			XPDeathReductionCap:    DefaultXPDeathReductionCap,
			AgeDeathThresholdDays:  14,
			AgeDeathPerDay:         0.005,
			AgeDeathCap:            0.10,
			DeathFloor:             0.02,
			DeathCeiling:           0.60,
			XPLoss:                 Range{Min: 0.25, Max: 0.75},
			BonusDrop:              BonusDrop{Resource: DefaultSingleUnitResource, Chance: 0.05, Amount: IntRange{Min: 1, Max: 1}},
			Kinds: map[string]ExpeditionKind{
				"salvage": {
					XPMultiplier: 1.0,
					BaseSeconds:  120,
					Loot:         map[string]IntRange{"scrap": {Min: 3, Max: 8}, "wires": {Min: 1, Max: 3}},
				},
				"hunt": {
					XPMultiplier: 1.2,
					BaseSeconds:  180,
					Loot:         map[string]IntRange{"biomass": {Min: 4, Max: 10}},
				},
				"deep_dive": {
					XPMultiplier: 1.6,
					BaseSeconds:  300,
					Loot:         map[string]IntRange{"minerals": {Min: 5, Max: 12}, "scrap": {Min: 2, Max: 6}},
				},
			},
		},
		Gather: GatherConfig{
			AttentionGain:      1,
			MinSeconds:         DefaultGatherMinSeconds,
			MaxSeconds:         DefaultGatherMaxSeconds,
			SingleUnitResource: DefaultSingleUnitResource,
			Resources: map[string]GatherResource{
				"biomass":  {Amount: IntRange{Min: 2, Max: 6}, Seconds: Range{Min: 20, Max: 60}},
				"minerals": {Amount: IntRange{Min: 1, Max: 4}, Seconds: Range{Min: 30, Max: 90}},
				"scrap":    {Amount: IntRange{Min: 2, Max: 5}, Seconds: Range{Min: 20, Max: 50}},
				"wires":    {Amount: IntRange{Min: 1, Max: 3}, Seconds: Range{Min: 40, Max: 80}},
				"relic":    {Amount: IntRange{Min: 1, Max: 5}, Seconds: Range{Min: 60, Max: 120}},
			},
		},
		Grow: GrowConfig{
			BaseSuccessChance: 1.0,
			AttentionGain:     2,
			MinSeconds:        DefaultGrowMinSeconds,
			MaxSeconds:        DefaultGrowMaxSeconds,
			MaxLevel:          DefaultGrowMaxLevel,
			CostCurve: CostCurve{
				BaseMult:    DefaultCostBaseMult,
				PerLevelAdd: DefaultCostPerLevelAdd,
				Breakpoints: []Breakpoint{{Level: 10, Factor: 1.5}, {Level: 25, Factor: 2.0}},
				MaxMult:     DefaultCostMaxMult,
			},
			Kinds: map[string]CloneKind{
				"basic": {
					SoulSplitBase:     5,
					SoulSplitVariance: 1,
					Seconds:           Range{Min: 60, Max: 180},
					Cost:              map[string]int{"biomass": 10, "minerals": 4},
				},
				"stalker": {
					SoulSplitBase:     8,
					SoulSplitVariance: 2,
					Seconds:           Range{Min: 120, Max: 300},
					Cost:              map[string]int{"biomass": 16, "wires": 4},
				},
				"refiner": {
					SoulSplitBase:     7,
					SoulSplitVariance: 1.5,
					Seconds:           Range{Min: 90, Max: 240},
					Cost:              map[string]int{"biomass": 12, "scrap": 8},
				},
			},
		},
		Upload: UploadConfig{
			RetainMin:       0.6,
			RetainMax:       0.9,
			RestorePer100XP: 1.0,
			AgeK:            0.1,
			AgeMaxBonus:     5.0,
		},
		Traits: map[string]TraitConfig{
			"aggression": {
				Neutral: 50,
				Effects: []TraitEffect{{
					Target:   "reward_mult",
					Op:       "mult",
					PerPoint: 0.004,
					Cap:      0.2,
					Actions:  []string{"expedition"},
					Incompatible: &TraitVariant{
						Pairs:    map[string][]string{"refiner": {"hunt", "deep_dive"}},
						PerPoint: -0.006,
						Cap:      -0.3,
					},
				}},
			},
			"resilience": {
				Neutral: 50,
				Effects: []TraitEffect{{Target: "death_chance", Op: "add", PerPoint: -0.002, Cap: -0.08, Actions: []string{"expedition"}}},
			},
			"diligence": {
				Neutral: 50,
				Effects: []TraitEffect{{Target: "time_mult", Op: "mult", PerPoint: -0.004, Cap: -0.2, Actions: []string{"expedition", "grow"}}},
			},
			"curiosity": {
				Neutral: 50,
				Effects: []TraitEffect{{Target: "xp_mult", Op: "mult", PerPoint: 0.005, Cap: 0.25, Actions: []string{"expedition"}}},
			},
		},
		Practice: PracticeConfig{
			DeathReductionPerLevel: 0.005,
			DeathReductionCap:      0.05,
			TimeReductionPerLevel:  0.01,
			TimeReductionCap:       0.25,
			RewardBonusPerLevel:    0.02,
			RewardBonusCap:         0.4,
		},
		Givebacks: GivebackConfig{
			XPPerLevel:   0.01,
			XPCap:        0.3,
			TimePerLevel: 0.005,
			TimeCap:      0.15,
		},
		Slots: SlotConfig{
			DurabilityThreshold:   40,
			DurabilityTimePenalty: 0.5,
			DurabilityCostPenalty: 0.25,
			FreeSlots:             1,
			OverloadTimePerSlot:   0.1,
			OverloadTimeCap:       0.5,
		},
		Attention: AttentionConfig{
			YellowThreshold: DefaultYellowThreshold,
			RedThreshold:    DefaultRedThreshold,
			Ambient: map[Band]map[string][]ModSpec{
				BandYellow: {
					"expedition": {{Target: "death_chance", Op: "add", Value: 0.02}},
					"gather":     {{Target: "time_mult", Op: "mult", Value: 1.1}},
					"grow":       {{Target: "time_mult", Op: "mult", Value: 1.1}},
				},
				BandRed: {
					"expedition": {{Target: "death_chance", Op: "add", Value: 0.05}},
					"gather":     {{Target: "time_mult", Op: "mult", Value: 1.25}},
					"grow":       {{Target: "time_mult", Op: "mult", Value: 1.2}, {Target: "cost_mult", Op: "mult", Value: 1.1}},
				},
			},
		},
		Feral: FeralConfig{
			AttackChance: map[Band]float64{BandYellow: 0.10, BandRed: 0.30},
			Penalties: map[string]map[Band]ModSpec{
				"expedition": {
					BandYellow: {Target: "death_chance", Op: "add", Value: 0.05},
					BandRed:    {Target: "death_chance", Op: "add", Value: 0.15},
				},
				"gather": {
					BandYellow: {Target: "time_mult", Op: "mult", Value: 1.25},
					BandRed:    {Target: "time_mult", Op: "mult", Value: 1.5},
				},
				"grow": {
					BandYellow: {Target: "cost_mult", Op: "mult", Value: 1.15},
					BandRed:    {Target: "cost_mult", Op: "mult", Value: 1.3},
				},
			},
		},
		AntiCheat: AntiCheatConfig{
			MaxRatePerHour: map[string]float64{"expedition": 30, "gather": 120, "grow": 20, "upload": 20},
			SuccessMargin:  0.1,
			MinSamples:     20,
			RateWindow:     DefaultRateWindow,
			TimerTolerance: DefaultTimerTolerance,
			LateCompletion: DefaultLateCompletion,
		},
	}
}

// Normalize fills values a partial document left empty. It runs once after
// loading so resolvers can read fields directly.
func (c *Config) Normalize() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}

	if c.Expedition.Kinds == nil {
		c.Expedition.Kinds = def.Expedition.Kinds
	}
	for name, kind := range c.Expedition.Kinds {
		if kind.XPMultiplier <= 0 {
			kind.XPMultiplier = 1
		}
		if kind.BaseSeconds <= 0 {
			kind.BaseSeconds = DefaultExpeditionSeconds
		}
		if kind.Loot == nil {
			kind.Loot = map[string]IntRange{}
		}
		c.Expedition.Kinds[name] = kind
	}
	if c.Expedition.XPLoss.Max <= 0 {
		c.Expedition.XPLoss = def.Expedition.XPLoss
	}
	if c.Expedition.DeathCeiling <= 0 {
		c.Expedition.DeathCeiling = def.Expedition.DeathCeiling
	}

	if c.Gather.MaxSeconds <= 0 {
		c.Gather.MinSeconds, c.Gather.MaxSeconds = DefaultGatherMinSeconds, DefaultGatherMaxSeconds
	}
	if c.Gather.Resources == nil {
		c.Gather.Resources = def.Gather.Resources
	}

	if c.Grow.MaxSeconds <= 0 {
		c.Grow.MinSeconds, c.Grow.MaxSeconds = DefaultGrowMinSeconds, DefaultGrowMaxSeconds
	}
	if c.Grow.MaxLevel <= 0 {
		c.Grow.MaxLevel = DefaultGrowMaxLevel
	}
	if c.Grow.CostCurve.MaxMult <= 0 {
		c.Grow.CostCurve.MaxMult = DefaultCostMaxMult
	}
	if c.Grow.CostCurve.BaseMult <= 0 {
		c.Grow.CostCurve.BaseMult = DefaultCostBaseMult
	}
	sort.SliceStable(c.Grow.CostCurve.Breakpoints, func(i, j int) bool {
		return c.Grow.CostCurve.Breakpoints[i].Level < c.Grow.CostCurve.Breakpoints[j].Level
	})
	if c.Grow.Kinds == nil {
		c.Grow.Kinds = def.Grow.Kinds
	}
	for name, kind := range c.Grow.Kinds {
		if kind.Cost == nil {
			kind.Cost = map[string]int{}
		}
		c.Grow.Kinds[name] = kind
	}

	if c.Upload.RetainMax <= 0 {
		c.Upload.RetainMin, c.Upload.RetainMax = def.Upload.RetainMin, def.Upload.RetainMax
	}

	if c.Traits == nil {
		c.Traits = map[string]TraitConfig{}
	}
	if c.Attention.RedThreshold <= 0 {
		c.Attention.RedThreshold = DefaultRedThreshold
	}
	if c.Attention.YellowThreshold <= 0 {
		c.Attention.YellowThreshold = DefaultYellowThreshold
	}
	if c.Attention.Ambient == nil {
		c.Attention.Ambient = map[Band]map[string][]ModSpec{}
	}
	if c.Feral.AttackChance == nil {
		c.Feral.AttackChance = map[Band]float64{}
	}
	if c.Feral.Penalties == nil {
		c.Feral.Penalties = map[string]map[Band]ModSpec{}
	}

	if c.AntiCheat.MaxRatePerHour == nil {
		c.AntiCheat.MaxRatePerHour = def.AntiCheat.MaxRatePerHour
	}
	if c.AntiCheat.RateWindow <= 0 {
		c.AntiCheat.RateWindow = DefaultRateWindow
	}
	if c.AntiCheat.TimerTolerance <= 0 {
		c.AntiCheat.TimerTolerance = DefaultTimerTolerance
	}
	if c.AntiCheat.LateCompletion <= 0 {
		c.AntiCheat.LateCompletion = DefaultLateCompletion
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
