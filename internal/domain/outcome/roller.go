package outcome

import "math/rand/v2"

// pcgStream fixes the PCG increment so a seed maps to exactly one stream.
const pcgStream = 0x9e3779b97f4a7c15

// Roller is the seeded draw stream for one resolution. It wraps the PCG
// generator from math/rand/v2, whose algorithm is specified and stable
// across Go releases, so a verifier holding the seed can replay every draw.
type Roller struct {
	rng *rand.Rand
}

func NewRoller(seed uint64) *Roller {
	return &Roller{rng: rand.New(rand.NewPCG(seed, pcgStream))}
}

// Random returns a float in [0, 1).
func (r *Roller) Random() float64 {
	return r.rng.Float64()
}

// Uniform returns a float in [a, b).
func (r *Roller) Uniform(a, b float64) float64 {
	return a + (b-a)*r.Random()
}

// RandInt returns an int in [a, b], both ends inclusive.
func (r *Roller) RandInt(a, b int) int {
	if b < a {
		a, b = b, a
	}
	return a + r.rng.IntN(b-a+1)
}
