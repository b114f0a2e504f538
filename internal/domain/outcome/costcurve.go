package outcome

import "soulforge/internal/domain/tuning"

// CostMultiplier walks levels 1..level adding the current slope at each step.
// A breakpoint multiplies the slope before its own level is added, and the
// change persists for every later level. Breakpoints must be sorted by level,
// which Config.Normalize guarantees.
//
// Once the walk reaches MaxMult and nothing left can turn the slope negative,
// the result is the cap and the walk stops early.
func CostMultiplier(level int, curve tuning.CostCurve) float64 {
	lastNegative := -1
	for i, bp := range curve.Breakpoints {
		if bp.Factor < 0 {
			lastNegative = i
		}
	}

	mult := curve.BaseMult
	slope := curve.PerLevelAdd
	next := 0
	for l := 1; l <= level; l++ {
		for next < len(curve.Breakpoints) && curve.Breakpoints[next].Level <= l {
			if curve.Breakpoints[next].Level == l {
				slope *= curve.Breakpoints[next].Factor
			}
			next++
		}
		mult += slope
		if curve.MaxMult > 0 && mult >= curve.MaxMult && slope >= 0 && next > lastNegative {
			break
		}
	}
	if curve.MaxMult > 0 && mult > curve.MaxMult {
		mult = curve.MaxMult
	}
	return mult
}
