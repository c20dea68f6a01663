package nutrients

import "math"

// Profile maps nutrient keys to amounts per a stated reference quantity.
// Absent keys read as 0.
type Profile map[Key]float64

// Get returns the amount for k, 0 when absent
func (p Profile) Get(k Key) float64 {
	if p == nil {
		return 0
	}
	return p[k]
}

// Clone returns an independent copy of p
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// AddScaled accumulates other * factor into p nutrient-wise
func (p Profile) AddScaled(other Profile, factor float64) {
	for k, v := range other {
		p[k] += v * factor
	}
}

// Round returns a copy with every value rounded half away from zero to the given decimals.
// This is the results-view rounding step; label inputs must stay unrounded.
func (p Profile) Round(decimals int) Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = RoundTo(v, decimals)
	}
	return out
}

// Scale converts a profile expressed per from g/ml into one expressed per to g/ml.
// from must be > 0; callers resolve missing reference quantities with ReferenceOrDefault.
func Scale(p Profile, from, to float64) Profile {
	factor := to / from
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v * factor
	}
	return out
}

// PerServing returns per100 scaled to servingSize
func PerServing(per100, servingSize float64) float64 {
	return per100 * servingSize / 100
}

// RoundTo rounds v half away from zero to the given number of decimals
func RoundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
