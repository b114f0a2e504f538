package outcome

import (
	"fmt"
	"math"

	"soulforge/internal/domain/tuning"
)

type Channel string

const (
	ChannelTimeMult       Channel = "time_mult"
	ChannelSuccessChance  Channel = "success_chance"
	ChannelDeathChance    Channel = "death_chance"
	ChannelRewardMult     Channel = "reward_mult"
	ChannelXPMult         Channel = "xp_mult"
	ChannelCostMult       Channel = "cost_mult"
	ChannelAttentionDelta Channel = "attention_delta"
)

// Channels lists every canonical channel in a fixed order.
var Channels = []Channel{
	ChannelTimeMult,
	ChannelSuccessChance,
	ChannelDeathChance,
	ChannelRewardMult,
	ChannelXPMult,
	ChannelCostMult,
	ChannelAttentionDelta,
}

type Op string

const (
	OpAdd  Op = "add"
	OpMult Op = "mult"
)

const (
	minTimeMult = 0.5
	maxTimeMult = 2.0
	minScalar   = 0.5
	maxScalar   = 3.0
)

// Mod is one adjustment to one channel, tagged with the system that produced
// it. Mods are values; producers build fresh ones per resolution.
type Mod struct {
	Target Channel `json:"target"`
	Op     Op      `json:"op"`
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

type CanonicalStats struct {
	TimeMult       float64 `json:"time_mult"`
	SuccessChance  float64 `json:"success_chance"`
	DeathChance    float64 `json:"death_chance"`
	RewardMult     float64 `json:"reward_mult"`
	XPMult         float64 `json:"xp_mult"`
	CostMult       float64 `json:"cost_mult"`
	AttentionDelta float64 `json:"attention_delta"`
}

// NeutralStats has every multiplicative channel at 1 and every additive
// channel at 0.
func NeutralStats() CanonicalStats {
	return CanonicalStats{
		TimeMult:   1,
		RewardMult: 1,
		XPMult:     1,
		CostMult:   1,
	}
}

func (s CanonicalStats) Get(ch Channel) float64 {
	switch ch {
	case ChannelTimeMult:
		return s.TimeMult
	case ChannelSuccessChance:
		return s.SuccessChance
	case ChannelDeathChance:
		return s.DeathChance
	case ChannelRewardMult:
		return s.RewardMult
	case ChannelXPMult:
		return s.XPMult
	case ChannelCostMult:
		return s.CostMult
	case ChannelAttentionDelta:
		return s.AttentionDelta
	default:
		return 0
	}
}

func (s *CanonicalStats) Set(ch Channel, v float64) {
	switch ch {
	case ChannelTimeMult:
		s.TimeMult = v
	case ChannelSuccessChance:
		s.SuccessChance = v
	case ChannelDeathChance:
		s.DeathChance = v
	case ChannelRewardMult:
		s.RewardMult = v
	case ChannelXPMult:
		s.XPMult = v
	case ChannelCostMult:
		s.CostMult = v
	case ChannelAttentionDelta:
		s.AttentionDelta = v
	}
}

// Aggregate applies mods to base channel by channel: all adds are summed
// onto the base first, then the result is scaled by the product of all
// mults. List order never matters, so a flat bonus from one system is never
// inflated by another system's multiplier.
func Aggregate(mods []Mod, base CanonicalStats) CanonicalStats {
	adds := make(map[Channel]float64, len(Channels))
	mults := make(map[Channel]float64, len(Channels))
	for _, m := range mods {
		switch m.Op {
		case OpAdd:
			adds[m.Target] += m.Value
		case OpMult:
			if _, ok := mults[m.Target]; !ok {
				mults[m.Target] = 1
			}
			mults[m.Target] *= m.Value
		}
	}

	out := base
	for _, ch := range Channels {
		v := base.Get(ch) + adds[ch]
		if f, ok := mults[ch]; ok {
			v *= f
		}
		out.Set(ch, v)
	}
	return out
}

// Clamp enforces the global invariants. Death is bounded first and success
// takes whatever probability mass is left.
func Clamp(s CanonicalStats) CanonicalStats {
	s.DeathChance = clampFloat(s.DeathChance, 0, 1)
	s.SuccessChance = clampFloat(s.SuccessChance, 0, 1-s.DeathChance)
	s.TimeMult = clampFloat(s.TimeMult, minTimeMult, maxTimeMult)
	s.RewardMult = clampFloat(s.RewardMult, minScalar, maxScalar)
	s.XPMult = clampFloat(s.XPMult, minScalar, maxScalar)
	s.CostMult = clampFloat(s.CostMult, minScalar, maxScalar)
	return s
}

// clampDeath applies an action's own death bounds after the global clamp and
// keeps success consistent with them.
func clampDeath(s CanonicalStats, floor, ceiling float64) CanonicalStats {
	s.DeathChance = clampFloat(s.DeathChance, floor, ceiling)
	s.SuccessChance = clampFloat(s.SuccessChance, 0, 1-s.DeathChance)
	return s
}

func ParseChannel(name string) (Channel, error) {
	for _, ch := range Channels {
		if string(ch) == name {
			return ch, nil
		}
	}
	return "", fmt.Errorf("unknown stat channel %q", name)
}

func ParseOp(name string) (Op, error) {
	switch Op(name) {
	case OpAdd, OpMult:
		return Op(name), nil
	default:
		return "", fmt.Errorf("unknown mod op %q", name)
	}
}

// modFromSpec converts a configured ModSpec. Specs are checked at load time
// by ValidateConfig, so an invalid one here is skipped.
func modFromSpec(spec tuning.ModSpec, source string) (Mod, bool) {
	ch, err := ParseChannel(spec.Target)
	if err != nil {
		return Mod{}, false
	}
	op, err := ParseOp(spec.Op)
	if err != nil {
		return Mod{}, false
	}
	return Mod{Target: ch, Op: op, Value: spec.Value, Source: source}, true
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
