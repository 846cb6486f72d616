// Package spatial holds the small value types and pure numeric helpers
// shared by the motion model, the observation model, the agents and the
// DWA planner: 2D landmark points, bearing-range observations, and the
// angle/grid/normalization utilities used throughout.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point is a fixed 2D location, typically a landmark.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Observation is a single noisy bearing-range reading of a landmark.
type Observation struct {
	Landmark Point   `json:"landmark"`
	Distance float64 `json:"distance"`
	Angle    float64 `json:"angle"`
}

// NormalizeAngle wraps r into [-pi, pi).
func NormalizeAngle(r float64) float64 {
	const twoPi = 2 * math.Pi
	a := math.Mod(r+math.Pi, twoPi) - math.Pi
	if a < -math.Pi {
		a += twoPi
	}
	return a
}

// Linspace returns an inclusive, evenly spaced grid from lo to hi with
// step resolution step: ⌊(hi-lo)/step⌋+1 samples. If hi < lo it returns
// nil. A degenerate (single point) range yields a one-element slice.
func Linspace(lo, hi, step float64) []float64 {
	if hi < lo {
		return nil
	}
	n := int(math.Floor((hi-lo)/step)) + 1
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// MinMaxNormalize rescales v into [0, 1]. If every element of v is equal,
// it returns a slice of 1.0 of the same length.
func MinMaxNormalize(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}

	min, max := floats.Min(v), floats.Max(v)
	d := max - min
	if d == 0 {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, x := range v {
		out[i] = (x - min) / d
	}
	return out
}
