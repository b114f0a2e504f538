package outcome

import (
	"fmt"
	"math"
	"strings"
)

// ResolveGrow spends soul to create a clone of ctx.CloneKind.
//
// Draw order: soul split, then (only when the soul covers it) the success
// roll, the grow time and the feral roll.
func (e *Engine) ResolveGrow(ctx Context) (Outcome, error) {
	ctx.Action = ActionGrow
	if err := requireCommon(ctx); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(ctx.CloneKind) == "" {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "clone_kind"}
	}
	cfg := ctx.Config.Grow
	if ctx.Level < 1 {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "level"}
	}
	if cfg.MaxLevel > 0 && ctx.Level > cfg.MaxLevel {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "level", Err: fmt.Errorf("%d above max %d", ctx.Level, cfg.MaxLevel)}
	}
	kind, ok := cfg.Kinds[ctx.CloneKind]
	if !ok {
		return Outcome{}, &ConfigLookupError{Section: "clone kind", Key: ctx.CloneKind}
	}

	base := NeutralStats()
	base.SuccessChance = cfg.BaseSuccessChance
	base.AttentionDelta = cfg.AttentionGain
	p, err := e.begin(ctx, base)
	if err != nil {
		return Outcome{}, err
	}
	p.collect()

	curve := CostMultiplier(ctx.Level, cfg.CostCurve)
	split := kind.SoulSplitBase
	if kind.SoulSplitVariance > 0 {
		split += p.uniform("soul_split", -kind.SoulSplitVariance, kind.SoulSplitVariance)
	}
	split = math.Max(0, split)

	if ctx.SoulPercent < split {
		out := p.finish(ResultFailure)
		out.Cost = ScaleCost(kind.Cost, curve*p.stats.CostMult)
		out.CostMultiplier = floatPtr(curve * p.stats.CostMult)
		out.SoulSplit = floatPtr(split)
		p.explain(&out)
		return out, nil
	}

	success := p.random("success")
	baseSeconds := p.uniform("seconds", kind.Seconds.Min, kind.Seconds.Max)
	p.runFeral()

	result := ResultFailure
	if success < p.stats.SuccessChance {
		result = ResultSuccess
	}
	out := p.finish(result)
	mult := curve * p.stats.CostMult
	out.Cost = ScaleCost(kind.Cost, mult)
	out.CostMultiplier = floatPtr(mult)
	out.SoulSplit = floatPtr(split)
	out.TimeSeconds = floatPtr(clampFloat(baseSeconds*p.stats.TimeMult, cfg.MinSeconds, cfg.MaxSeconds))
	if result == ResultSuccess {
		out.SpawnKind = ctx.CloneKind
	}
	p.explain(&out)
	return out, nil
}

// ScaleCost multiplies a clone cost and rounds each entry half away from
// zero. A non-zero base cost never rounds down to nothing.
func ScaleCost(cost map[string]int, mult float64) map[string]int {
	out := make(map[string]int, len(cost))
	for resource, n := range cost {
		if n <= 0 {
			continue
		}
		out[resource] = max(1, roundHalfAway(float64(n)*mult))
	}
	return out
}
