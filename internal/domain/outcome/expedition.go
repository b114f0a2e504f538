package outcome

import (
	"math"
	"strings"
)

func (e *Engine) ResolveExpedition(ctx Context) (Outcome, error) {
	ctx.Action = ActionExpedition
	if err := requireCommon(ctx); err != nil {
		return Outcome{}, err
	}
	if ctx.Entity == nil {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "entity"}
	}
	if strings.TrimSpace(ctx.ExpeditionKind) == "" {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "expedition_kind"}
	}
	cfg := ctx.Config.Expedition
	kind, ok := cfg.Kinds[ctx.ExpeditionKind]
	if !ok {
		return Outcome{}, &ConfigLookupError{Section: "expedition kind", Key: ctx.ExpeditionKind}
	}

	base := NeutralStats()
	base.DeathChance = cfg.BaseDeathProb
	base.AttentionDelta = cfg.AttentionGain
	p, err := e.begin(ctx, base)
	if err != nil {
		return Outcome{}, err
	}
	p.boundDeath(cfg.DeathFloor, cfg.DeathCeiling)

	reduction, penalty := expeditionAdjustments(ctx)
	p.adjust(ChannelDeathChance, -reduction, "experience")
	p.adjust(ChannelDeathChance, penalty, "age")
	p.base.SuccessChance = 1 - p.base.DeathChance
	p.collect()

	survival := p.random("survival")
	p.runFeral()

	if survival < p.stats.DeathChance {
		frac := cfg.XPLoss.Min + (cfg.XPLoss.Max-cfg.XPLoss.Min)*e.entropy()
		after := make(map[string]float64, len(ctx.Entity.XP))
		for track, xp := range ctx.Entity.XP {
			after[track] = xp * (1 - frac)
		}
		out := p.finish(ResultDeath)
		out.TimeSeconds = floatPtr(kind.BaseSeconds * p.stats.TimeMult)
		out.EntityDelta = &EntityDelta{
			Dead:            true,
			XPLossFraction:  frac,
			XPAfter:         after,
			ClearAssignment: ctx.Entity.AssignedSlot != "",
		}
		p.explain(&out)
		return out, nil
	}

	loot := map[string]int{}
	for _, resource := range kind.LootKeys() {
		r := kind.Loot[resource]
		n := p.randInt("loot:"+resource, r.Min, r.Max)
		if amount := roundHalfAway(float64(n) * p.stats.RewardMult); amount > 0 {
			loot[resource] += amount
		}
	}
	if bonus := cfg.BonusDrop; bonus.Resource != "" && bonus.Chance > 0 {
		if p.random("bonus:"+bonus.Resource) < bonus.Chance {
			loot[bonus.Resource] += p.randInt("bonus_amount:"+bonus.Resource, bonus.Amount.Min, bonus.Amount.Max)
		}
	}

	out := p.finish(ResultSuccess)
	out.Loot = loot
	xp := math.Round(cfg.BaseXP * kind.XPMultiplier * p.stats.XPMult)
	if xp > 0 {
		out.XPGained[ctx.ExpeditionKind] = xp
	}
	out.TimeSeconds = floatPtr(kind.BaseSeconds * p.stats.TimeMult)
	p.explain(&out)
	return out, nil
}

// DeathChanceBeforeClamp reports the expedition death chance after the
// experience and age adjustments, before any Mod or clamp.
func DeathChanceBeforeClamp(ctx Context) (float64, error) {
	if ctx.Config == nil {
		return 0, &ValidationError{Action: ActionExpedition, Field: "config"}
	}
	if ctx.Entity == nil {
		return 0, &ValidationError{Action: ActionExpedition, Field: "entity"}
	}
	reduction, penalty := expeditionAdjustments(ctx)
	return ctx.Config.Expedition.BaseDeathProb - reduction + penalty, nil
}

// expeditionAdjustments returns the experience reduction and the age
// penalty, both non-negative.
func expeditionAdjustments(ctx Context) (reduction, penalty float64) {
	cfg := ctx.Config.Expedition
	reduction = math.Max(0, math.Min(cfg.XPDeathReductionCap, ctx.Entity.TotalXP()/100*cfg.XPDeathReductionPer100))
	if over := ctx.Entity.AgeDays(ctx.Seed.StartedAt) - cfg.AgeDeathThresholdDays; cfg.AgeDeathThresholdDays > 0 && over > 0 {
		penalty = math.Max(0, math.Min(cfg.AgeDeathCap, over*cfg.AgeDeathPerDay))
	}
	return reduction, penalty
}
