package outcome

import (
	"fmt"
	"math"
	"slices"
)

// Producer turns a context into the Mods one gameplay system contributes.
// Producers are pure; a resolver concatenates the lists of the systems that
// apply to its action.
type Producer func(Context) []Mod

var producersByAction = map[ActionKind][]Producer{
	ActionExpedition: {TraitMods, PracticeMods, LevelGivebackMods, AttentionMods},
	ActionGather:     {PracticeMods, LevelGivebackMods, SlotOverloadMods, AttentionMods},
	ActionGrow:       {TraitMods, PracticeMods, LevelGivebackMods, SlotDurabilityMods, SlotOverloadMods, AttentionMods},
	ActionUpload:     nil,
}

// ProducersFor returns the Mod producers that feed the given action.
func ProducersFor(action ActionKind) []Producer {
	return producersByAction[action]
}

// CollectMods runs every producer for the context's action in order.
func CollectMods(ctx Context) []Mod {
	var mods []Mod
	for _, produce := range ProducersFor(ctx.Action) {
		mods = append(mods, produce(ctx)...)
	}
	return mods
}

// TraitEffectValue applies the directional cap: a positive slope is capped
// from above and a negative slope is floored from below. The other side is
// left open, so a trait below neutral can push past the cap's mirror image.
func TraitEffectValue(value, neutral, perPoint, limit float64) float64 {
	raw := (value - neutral) * perPoint
	switch {
	case perPoint > 0:
		return math.Min(raw, limit)
	case perPoint < 0:
		return math.Max(raw, limit)
	default:
		return 0
	}
}

func TraitMods(ctx Context) []Mod {
	if ctx.Entity == nil || ctx.Config == nil || len(ctx.Entity.Traits) == 0 {
		return nil
	}
	var mods []Mod
	for _, name := range sortedKeys(ctx.Config.Traits) {
		value, ok := ctx.Entity.Traits[name]
		if !ok {
			continue
		}
		trait := ctx.Config.Traits[name]
		for _, effect := range trait.Effects {
			if !slices.Contains(effect.Actions, string(ctx.Action)) {
				continue
			}
			perPoint, limit := effect.PerPoint, effect.Cap
			source := "trait:" + name
			if v := effect.Incompatible; v != nil && ctx.Action == ActionExpedition &&
				slices.Contains(v.Pairs[ctx.Entity.Kind], ctx.ExpeditionKind) {
				perPoint, limit = v.PerPoint, v.Cap
				source += ":incompatible"
			}
			bounded := TraitEffectValue(value, trait.Neutral, perPoint, limit)
			if bounded == 0 {
				continue
			}
			ch, err := ParseChannel(effect.Target)
			if err != nil {
				continue
			}
			op, err := ParseOp(effect.Op)
			if err != nil {
				continue
			}
			v := bounded
			if op == OpMult {
				v = 1 + bounded
			}
			mods = append(mods, Mod{Target: ch, Op: op, Value: v, Source: source})
		}
	}
	return mods
}

// PracticeMods reads the practice level of the action's own track.
func PracticeMods(ctx Context) []Mod {
	if ctx.Config == nil {
		return nil
	}
	level := float64(ctx.Practice[string(ctx.Action)])
	if level <= 0 {
		return nil
	}
	cfg := ctx.Config.Practice
	source := fmt.Sprintf("practice:%s:%d", ctx.Action, int(level))
	var mods []Mod
	switch ctx.Action {
	case ActionExpedition:
		if r := math.Min(level*cfg.DeathReductionPerLevel, cfg.DeathReductionCap); r > 0 {
			mods = append(mods, Mod{Target: ChannelDeathChance, Op: OpAdd, Value: -r, Source: source})
		}
		if b := math.Min(level*cfg.RewardBonusPerLevel, cfg.RewardBonusCap); b > 0 {
			mods = append(mods, Mod{Target: ChannelRewardMult, Op: OpMult, Value: 1 + b, Source: source})
		}
	case ActionGather:
		if r := math.Min(level*cfg.TimeReductionPerLevel, cfg.TimeReductionCap); r > 0 {
			mods = append(mods, Mod{Target: ChannelTimeMult, Op: OpMult, Value: 1 - r, Source: source})
		}
		if b := math.Min(level*cfg.RewardBonusPerLevel, cfg.RewardBonusCap); b > 0 {
			mods = append(mods, Mod{Target: ChannelRewardMult, Op: OpMult, Value: 1 + b, Source: source})
		}
	case ActionGrow:
		if r := math.Min(level*cfg.TimeReductionPerLevel, cfg.TimeReductionCap); r > 0 {
			mods = append(mods, Mod{Target: ChannelTimeMult, Op: OpMult, Value: 1 - r, Source: source})
		}
	}
	return mods
}

// LevelGivebackMods rewards levels above the first.
func LevelGivebackMods(ctx Context) []Mod {
	if ctx.Config == nil || ctx.Level <= 1 {
		return nil
	}
	cfg := ctx.Config.Givebacks
	over := float64(ctx.Level - 1)
	source := fmt.Sprintf("giveback:level:%d", ctx.Level)
	switch ctx.Action {
	case ActionExpedition:
		if b := math.Min(over*cfg.XPPerLevel, cfg.XPCap); b > 0 {
			return []Mod{{Target: ChannelXPMult, Op: OpMult, Value: 1 + b, Source: source}}
		}
	case ActionGather, ActionGrow:
		if r := math.Min(over*cfg.TimePerLevel, cfg.TimeCap); r > 0 {
			return []Mod{{Target: ChannelTimeMult, Op: OpMult, Value: 1 - r, Source: source}}
		}
	}
	return nil
}

// SlotDurabilityMods penalises growing in a worn slot.
func SlotDurabilityMods(ctx Context) []Mod {
	if ctx.Config == nil || ctx.SlotDurability == nil {
		return nil
	}
	cfg := ctx.Config.Slots
	if *ctx.SlotDurability >= cfg.DurabilityThreshold {
		return nil
	}
	source := fmt.Sprintf("slot:durability:%.0f", *ctx.SlotDurability)
	var mods []Mod
	if cfg.DurabilityTimePenalty > 0 {
		mods = append(mods, Mod{Target: ChannelTimeMult, Op: OpMult, Value: 1 + cfg.DurabilityTimePenalty, Source: source})
	}
	if cfg.DurabilityCostPenalty > 0 {
		mods = append(mods, Mod{Target: ChannelCostMult, Op: OpMult, Value: 1 + cfg.DurabilityCostPenalty, Source: source})
	}
	return mods
}

func SlotOverloadMods(ctx Context) []Mod {
	if ctx.Config == nil {
		return nil
	}
	cfg := ctx.Config.Slots
	extra := ctx.ActiveSlots - cfg.FreeSlots
	if extra <= 0 {
		return nil
	}
	p := math.Min(float64(extra)*cfg.OverloadTimePerSlot, cfg.OverloadTimeCap)
	if p <= 0 {
		return nil
	}
	return []Mod{{
		Target: ChannelTimeMult,
		Op:     OpMult,
		Value:  1 + p,
		Source: fmt.Sprintf("slot:overload:%d", extra),
	}}
}

// AttentionMods applies the ambient effects of the current attention band.
func AttentionMods(ctx Context) []Mod {
	if ctx.Config == nil {
		return nil
	}
	band := ctx.Config.Attention.BandFor(ctx.Attention)
	if band == "" {
		return nil
	}
	specs := ctx.Config.Attention.Ambient[band][string(ctx.Action)]
	mods := make([]Mod, 0, len(specs))
	for _, spec := range specs {
		if m, ok := modFromSpec(spec, "attention:"+string(band)); ok {
			mods = append(mods, m)
		}
	}
	return mods
}
