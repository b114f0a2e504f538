// Package outcome resolves the four player actions into deterministic,
// auditable outcomes. Every draw that decides a result comes from a PCG
// stream seeded by integrity.Keyring, so a holder of the secret can replay a
// resolution from its seed parts alone.
package outcome

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"soulforge/internal/domain/integrity"
)

// Engine is safe for concurrent use: it holds only the read-only keyring and
// an entropy source for the single non-seeded value (the death XP-loss
// fraction).
type Engine struct {
	Keyring integrity.Keyring
	Entropy func() float64
}

func NewEngine(keyring integrity.Keyring) *Engine {
	return &Engine{Keyring: keyring, Entropy: rand.Float64}
}

// Resolve dispatches on ctx.Action.
func (e *Engine) Resolve(ctx Context) (Outcome, error) {
	switch ctx.Action {
	case ActionExpedition:
		return e.ResolveExpedition(ctx)
	case ActionGather:
		return e.ResolveGather(ctx)
	case ActionGrow:
		return e.ResolveGrow(ctx)
	case ActionUpload:
		return e.ResolveUpload(ctx)
	case "":
		return Outcome{}, &ValidationError{Field: "action"}
	default:
		return Outcome{}, &ValidationError{Action: ctx.Action, Field: "action", Err: fmt.Errorf("unknown action %q", ctx.Action)}
	}
}

func (e *Engine) entropy() float64 {
	if e.Entropy != nil {
		return e.Entropy()
	}
	return rand.Float64()
}

// pipeline carries one resolution through the shared steps. It is created
// after validation so the roller is never touched for a rejected context.
type pipeline struct {
	ctx    Context
	seed   uint64
	roller *Roller

	base         CanonicalStats
	adjustments  map[Channel][]TermMod
	mods         []Mod
	stats        CanonicalStats
	deathBounded bool
	deathFloor   float64
	deathCeiling float64

	feral *FeralAttack
	rolls []Roll
}

func (e *Engine) begin(ctx Context, base CanonicalStats) (*pipeline, error) {
	seed, err := e.Keyring.ComputeSeed(ctx.Seed)
	if errors.Is(err, integrity.ErrEmptySecret) {
		return nil, err
	}
	if err != nil {
		return nil, &ValidationError{Action: ctx.Action, Field: "seed", Err: err}
	}
	return &pipeline{
		ctx:         ctx,
		seed:        seed,
		roller:      NewRoller(seed),
		base:        base,
		adjustments: map[Channel][]TermMod{},
	}, nil
}

// adjust changes a base channel outside the Mod system and records it.
func (p *pipeline) adjust(ch Channel, delta float64, source string) {
	if delta == 0 {
		return
	}
	p.base.Set(ch, p.base.Get(ch)+delta)
	p.adjustments[ch] = append(p.adjustments[ch], TermMod{Source: source, Op: OpAdd, Value: delta})
}

// boundDeath installs the action's own death bounds. Actions that never call
// it keep only the global clamp.
func (p *pipeline) boundDeath(floor, ceiling float64) {
	p.deathBounded = true
	p.deathFloor, p.deathCeiling = floor, ceiling
}

func (p *pipeline) settle() {
	p.stats = Clamp(Aggregate(p.mods, p.base))
	if p.deathBounded {
		p.stats = clampDeath(p.stats, p.deathFloor, p.deathCeiling)
	}
}

func (p *pipeline) collect() {
	p.mods = append(p.mods, CollectMods(p.ctx)...)
	p.settle()
}

// runFeral rolls the attack and, when it carries an effect, re-aggregates
// and re-clamps with the extra Mod.
func (p *pipeline) runFeral() {
	attack, roll, rolled := rollFeral(p.ctx, p.roller)
	if rolled {
		p.record("feral", roll)
	}
	p.feral = attack
	if attack == nil {
		return
	}
	if len(p.feral.Effects) > 0 {
		p.mods = append(p.mods, p.feral.Effects...)
		p.settle()
	}
}

func (p *pipeline) random(name string) float64 {
	v := p.roller.Random()
	p.record(name, v)
	return v
}

func (p *pipeline) uniform(name string, a, b float64) float64 {
	v := p.roller.Uniform(a, b)
	p.record(name, v)
	return v
}

func (p *pipeline) randInt(name string, a, b int) int {
	v := p.roller.RandInt(a, b)
	p.record(name, float64(v))
	return v
}

func (p *pipeline) record(name string, v float64) {
	p.rolls = append(p.rolls, Roll{Name: name, Value: v})
}

// terms lists every channel whose value came from somewhere other than the
// neutral default.
func (p *pipeline) terms() Terms {
	neutral := NeutralStats()
	modsByChannel := map[Channel][]TermMod{}
	for _, m := range p.mods {
		modsByChannel[m.Target] = append(modsByChannel[m.Target], TermMod{Source: m.Source, Op: m.Op, Value: m.Value})
	}
	terms := Terms{}
	for _, ch := range Channels {
		adj := p.adjustments[ch]
		mods := modsByChannel[ch]
		base := p.base.Get(ch) - sumTermMods(adj)
		if len(adj) == 0 && len(mods) == 0 && base == neutral.Get(ch) && p.stats.Get(ch) == neutral.Get(ch) {
			continue
		}
		terms[ch] = Term{Base: base, Adjustments: adj, Mods: mods, Final: p.stats.Get(ch)}
	}
	return terms
}

func sumTermMods(mods []TermMod) float64 {
	total := 0.0
	for _, m := range mods {
		total += m.Value
	}
	return total
}

func (p *pipeline) finish(result Result) Outcome {
	mods := make([]Mod, len(p.mods))
	copy(mods, p.mods)
	out := Outcome{
		Action:   p.ctx.Action,
		Subtype:  p.ctx.subtype(),
		Result:   result,
		Stats:    p.stats,
		Loot:     map[string]int{},
		XPGained: map[string]float64{},
		Mods:     mods,
		Terms:    p.terms(),
		Feral:    p.feral,
		Rolls:    p.rolls,
		Seed:     p.seed,
	}
	if p.ctx.Entity != nil {
		out.EntityID = p.ctx.Entity.ID
	}
	return out
}

func (p *pipeline) explain(out *Outcome) {
	if p.ctx.Debug {
		out.Explanation = BuildExplanation(out.Terms, out.Stats, out.Mods)
	}
}

func roundHalfAway(v float64) int {
	return int(math.Round(v))
}

// requireCommon checks the fields every action needs.
func requireCommon(ctx Context) error {
	if ctx.Config == nil {
		return &ValidationError{Action: ctx.Action, Field: "config"}
	}
	if ctx.Seed.ConfigVersion == "" {
		return &ValidationError{Action: ctx.Action, Field: "config_version"}
	}
	return nil
}
