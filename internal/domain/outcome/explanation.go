package outcome

import (
	"fmt"
	"sort"
	"strings"
)

type ChannelExplanation struct {
	Channel     Channel   `json:"channel"`
	Base        float64   `json:"base"`
	Adjustments []TermMod `json:"adjustments,omitempty"`
	Mods        []TermMod `json:"mods,omitempty"`
	Final       float64   `json:"final"`
	Clamped     bool      `json:"clamped"`
	Line        string    `json:"line"`
}

type SourceTotal struct {
	Source string `json:"source"`
	Mods   int    `json:"mods"`
}

// Explanation is the debug view of one resolution.
type Explanation struct {
	Channels []ChannelExplanation `json:"channels"`
	Sources  []SourceTotal        `json:"sources"`
	Stats    CanonicalStats       `json:"stats"`
}

// BuildExplanation turns the audit terms into a readable breakdown. It does
// not depend on the action; any terms/stats/mods triple can be explained.
func BuildExplanation(terms Terms, stats CanonicalStats, mods []Mod) *Explanation {
	exp := &Explanation{Stats: stats}
	for _, ch := range Channels {
		term, ok := terms[ch]
		if !ok {
			continue
		}
		unclamped := term.Base + sumTermMods(term.Adjustments)
		mult := 1.0
		hasMult := false
		for _, m := range term.Mods {
			switch m.Op {
			case OpAdd:
				unclamped += m.Value
			case OpMult:
				mult *= m.Value
				hasMult = true
			}
		}
		if hasMult {
			unclamped *= mult
		}
		exp.Channels = append(exp.Channels, ChannelExplanation{
			Channel:     ch,
			Base:        term.Base,
			Adjustments: term.Adjustments,
			Mods:        term.Mods,
			Final:       term.Final,
			Clamped:     !nearlyEqual(unclamped, term.Final),
			Line:        explainLine(ch, term),
		})
	}

	counts := map[string]int{}
	for _, m := range mods {
		counts[m.Source]++
	}
	for source, n := range counts {
		exp.Sources = append(exp.Sources, SourceTotal{Source: source, Mods: n})
	}
	sort.Slice(exp.Sources, func(i, j int) bool { return exp.Sources[i].Source < exp.Sources[j].Source })
	return exp
}

func explainLine(ch Channel, term Term) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: base %.4g", ch, term.Base)
	for _, a := range term.Adjustments {
		fmt.Fprintf(&b, " %+.4g (%s)", a.Value, a.Source)
	}
	for _, m := range term.Mods {
		if m.Op == OpAdd {
			fmt.Fprintf(&b, " %+.4g (%s)", m.Value, m.Source)
		}
	}
	for _, m := range term.Mods {
		if m.Op == OpMult {
			fmt.Fprintf(&b, " x%.4g (%s)", m.Value, m.Source)
		}
	}
	fmt.Fprintf(&b, " = %.4g", term.Final)
	return b.String()
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

// Summary is a one-line human description for logs.
func (o Outcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", o.Action)
	if o.Subtype != "" {
		fmt.Fprintf(&b, "/%s", o.Subtype)
	}
	fmt.Fprintf(&b, " %s", o.Result)
	if len(o.Loot) > 0 {
		parts := make([]string, 0, len(o.Loot))
		for _, k := range sortedKeys(o.Loot) {
			parts = append(parts, fmt.Sprintf("%s x%d", k, o.Loot[k]))
		}
		fmt.Fprintf(&b, " loot[%s]", strings.Join(parts, ", "))
	}
	if xp := o.TotalXPGained(); xp != 0 {
		fmt.Fprintf(&b, " xp=%.4g", xp)
	}
	if o.TimeSeconds != nil {
		fmt.Fprintf(&b, " time=%.1fs", *o.TimeSeconds)
	}
	if o.Feral != nil {
		fmt.Fprintf(&b, " feral=%s", o.Feral.Band)
	}
	return b.String()
}
