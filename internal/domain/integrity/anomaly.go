package integrity

import "fmt"

// AnomalyLimits are the realistic ceilings an honest player stays under.
type AnomalyLimits struct {
	MaxRatePerHour map[string]float64
	SuccessMargin  float64
	MinSamples     int
}

// OutcomeStats summarises an actor's recent results for one action type.
type OutcomeStats struct {
	Attempts      int
	Successes     int
	BaseDeathProb float64
}

func (s OutcomeStats) SuccessRate() float64 {
	if s.Attempts <= 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// DetectAnomaly reports the first suspicious signal for identity, or false
// when nothing stands out. The success ceiling is the expected success rate
// (1 - base death probability) plus the configured margin, and only applies
// once MinSamples attempts have been observed.
func DetectAnomaly(limits AnomalyLimits, identity, actionType string, ratePerHour float64, stats OutcomeStats) (string, bool) {
	if ceiling, ok := limits.MaxRatePerHour[actionType]; ok && ceiling > 0 && ratePerHour > ceiling {
		return fmt.Sprintf("%s: %s rate %.1f/h exceeds ceiling %.1f/h", NormalizeIdentity(identity), actionType, ratePerHour, ceiling), true
	}
	if stats.Attempts < limits.MinSamples || stats.Attempts == 0 {
		return "", false
	}
	ceiling := 1 - stats.BaseDeathProb + limits.SuccessMargin
	if ceiling >= 1 {
		return "", false
	}
	if rate := stats.SuccessRate(); rate > ceiling {
		return fmt.Sprintf("%s: %s success rate %.2f exceeds ceiling %.2f over %d attempts", NormalizeIdentity(identity), actionType, rate, ceiling, stats.Attempts), true
	}
	return "", false
}
