package outcome

import "math"

// ResolveUpload returns a clone's experience to the self. It always succeeds
// and no Mod producer applies; a feral attack only annotates the outcome.
func (e *Engine) ResolveUpload(ctx Context) (Outcome, error) {
	ctx.Action = ActionUpload
	if err := requireCommon(ctx); err != nil {
		return Outcome{}, err
	}
	if ctx.Entity == nil {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "entity"}
	}
	cfg := ctx.Config.Upload

	base := NeutralStats()
	base.SuccessChance = 1
	base.AttentionDelta = cfg.AttentionGain
	p, err := e.begin(ctx, base)
	if err != nil {
		return Outcome{}, err
	}
	p.collect()

	totalXP := ctx.Entity.TotalXP()
	retain := p.uniform("retain", cfg.RetainMin, cfg.RetainMax)
	p.runFeral()
	selfXP := totalXP * retain
	ageBonus := math.Min(ctx.Entity.AgeDays(ctx.Seed.StartedAt)*cfg.AgeK, cfg.AgeMaxBonus)
	restore := totalXP*cfg.RestorePer100XP/100 + ageBonus

	out := p.finish(ResultSuccess)
	out.XPGained["self"] = selfXP
	out.SoulXP = floatPtr(selfXP)
	out.SoulRestore = floatPtr(restore)
	out.EntityDelta = &EntityDelta{Uploaded: true, ClearAssignment: ctx.Entity.AssignedSlot != ""}
	p.explain(&out)
	return out, nil
}
