package outcome

import (
	"math"
	"strings"
)

// ResolveGather always succeeds. Amount and time are drawn first, then the
// feral roll; a feral penalty still scales both.
func (e *Engine) ResolveGather(ctx Context) (Outcome, error) {
	ctx.Action = ActionGather
	if err := requireCommon(ctx); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(ctx.GatherResource) == "" {
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "gather_resource"}
	}
	cfg := ctx.Config.Gather
	res, ok := cfg.Resources[ctx.GatherResource]
	if !ok {
		return Outcome{}, &ConfigLookupError{Section: "gather resource", Key: ctx.GatherResource}
	}

	base := NeutralStats()
	base.SuccessChance = 1
	base.AttentionDelta = cfg.AttentionGain
	p, err := e.begin(ctx, base)
	if err != nil {
		return Outcome{}, err
	}
	p.collect()

	n := p.randInt("amount", res.Amount.Min, res.Amount.Max)
	baseSeconds := p.uniform("seconds", res.Seconds.Min, res.Seconds.Max)
	p.runFeral()

	amount := max(1, roundHalfAway(float64(n)*p.stats.RewardMult))
	if ctx.GatherResource == cfg.SingleUnitResource {
		amount = 1
	}
	seconds := clampFloat(baseSeconds*p.stats.TimeMult, cfg.MinSeconds, cfg.MaxSeconds)

	out := p.finish(ResultSuccess)
	out.Loot[ctx.GatherResource] = amount
	out.TimeSeconds = floatPtr(math.Round(seconds*100) / 100)
	p.explain(&out)
	return out, nil
}
