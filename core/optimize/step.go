package optimize

import (
	"math"
	"math/rand/v2"
)

// Step proposes a new bounded point from current. Each coordinate is
// perturbed by a normal draw scaled by the larger of the configured step size
// and the current distance from the start point, so the search radius grows
// as the walk moves away from where it began.
//
// Out-of-bounds proposals are reflected back into range using a modular
// wrap-around on the exceeded amount:
//
//	v > hi: v' = hi - ((v - hi) mod range)
//	v < lo: v' = lo + ((lo - v) mod range)
//
// For a one-sided bound the range is infinite and the wrap-around degrades to
// a plain reflection. The function is pure apart from the RNG draws.
func Step(current, start, step []float64, bounds []Bound, rng *rand.Rand) []float64 {
	out := make([]float64, len(current))
	for i, x := range current {
		scale := step[i]
		if d := math.Abs(x - start[i]); d > scale {
			scale = d
		}
		v := x + rng.NormFloat64()*scale

		b := bounds[i]
		span := b.Upper - b.Lower
		if v > b.Upper {
			v = b.Upper - math.Mod(v-b.Upper, span)
		} else if v < b.Lower {
			v = b.Lower + math.Mod(b.Lower-v, span)
		}
		out[i] = v
	}
	return out
}
