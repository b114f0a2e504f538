package outcome

import (
	"fmt"

	"soulforge/internal/domain/tuning"
)

// rollFeral classifies attention and, when a band applies, consumes exactly
// one draw from r. rolled reports whether that draw happened; the attack is
// nil when none occurred. Upload never gets a mechanical effect, only a
// warning.
func rollFeral(ctx Context, r *Roller) (attack *FeralAttack, roll float64, rolled bool) {
	cfg := ctx.Config
	band := cfg.Attention.BandFor(ctx.Attention)
	if band == tuning.BandNone {
		return nil, 0, false
	}
	chance := cfg.Feral.AttackChance[band]
	roll = r.Random()
	if roll >= chance {
		return nil, roll, true
	}

	attack = &FeralAttack{Band: band, Action: ctx.Action, Chance: chance, Roll: roll}
	if ctx.Action == ActionUpload {
		attack.Warning = fmt.Sprintf("feral activity (%s) stalked the upload; no effect", band)
		return attack, roll, true
	}
	spec, ok := cfg.Feral.Penalties[string(ctx.Action)][band]
	if !ok {
		attack.Warning = fmt.Sprintf("feral activity (%s) with no configured penalty", band)
		return attack, roll, true
	}
	if m, ok := modFromSpec(spec, "feral:"+string(band)); ok {
		attack.Effects = []Mod{m}
	}
	return attack, roll, true
}
