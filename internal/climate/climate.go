// Package climate produces the block's background tension: a smooth,
// seedable curve over ticks built from layered simplex noise, with a daily
// swing so afternoons in the yard run hotter than nights on lockdown.
package climate

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Curve maps ticks to an environment intensity in [0, 1].
type Curve struct {
	noise opensimplex.Noise

	Base      float64 // long-run mean intensity
	Amplitude float64 // how far noise may pull away from Base
	Period    float64 // ticks per noise unit; larger is smoother
	Daily     float64 // amplitude of the 24-tick cycle
}

// New creates a curve with default shape.
func New(seed int64) *Curve {
	return &Curve{
		noise:     opensimplex.NewNormalized(seed),
		Base:      0.5,
		Amplitude: 0.35,
		Period:    72,
		Daily:     0.05,
	}
}

// Intensity returns the tension at tick.
func (c *Curve) Intensity(tick uint64) float64 {
	t := float64(tick)
	n := octaveNoise(c.noise, t/c.Period, 0, 3, 1, 0.5) // [0, 1]
	v := c.Base + c.Amplitude*(n-0.5)*2
	// peaks mid-afternoon, lowest in the small hours
	v += c.Daily * math.Sin((math.Mod(t, 24)-9)/24*2*math.Pi)
	return math.Max(0, math.Min(1, v))
}

// Describe names an intensity the way the guards would.
func Describe(v float64) string {
	switch {
	case v >= 0.8:
		return "the block is ready to blow"
	case v >= 0.6:
		return "tempers are running hot"
	case v >= 0.4:
		return "an uneasy quiet"
	case v >= 0.2:
		return "a slow, watchful day"
	default:
		return "dead calm"
	}
}

// octaveNoise layers several frequencies of noise.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
