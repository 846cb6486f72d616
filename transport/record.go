// Package transport implements the per-tick publish side of the
// simulator: the JSON wire record the scheduler emits and the
// topic-less publish socket it is broadcast over.
package transport

import (
	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/spatial"
)

// Pose is the wire representation of a robot pose.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// ObservedEntry is the wire representation of a single landmark
// observation.
type ObservedEntry struct {
	Landmark spatial.Point `json:"landmark"`
	Distance float64       `json:"distance"`
	Angle    float64       `json:"angle"`
}

// Record is the structured payload emitted once per tick. Field order
// matches spec §6 exactly; Go's encoding/json preserves struct
// declaration order, so this layout is also the wire order.
type Record struct {
	Ideal      Pose            `json:"ideal"`
	Actual     Pose            `json:"actual"`
	XHat       Pose            `json:"xhat"`
	Observed   []ObservedEntry `json:"observed"`
	Covariance []float64       `json:"covariance"`
	KalmanGain []float64       `json:"kalmanGain"`
}

// PoseOf converts a 3-vector (x,y,theta) into a wire Pose.
func PoseOf(v mat.Vector) Pose {
	return Pose{X: v.AtVec(0), Y: v.AtVec(1), Theta: v.AtVec(2)}
}

// FlattenColumnMajor flattens m column-major: column 0 first, top to
// bottom, then column 1, and so on. This is the transpose-then-flatten
// layout spec §4.5/§9 locks in for covariance and Kalman gain, preserved
// from the system this module was modeled on.
func FlattenColumnMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
