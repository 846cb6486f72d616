// Package camera implements the bearing-range observation model: given a
// landmark and a robot pose it predicts the (distance, angle) reading a
// camera would report, plus the analytic Jacobian of that prediction with
// respect to the pose.
package camera

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/spatial"
)

// Observe returns the ideal (distance, angle) reading of landmark as seen
// from pose x=(x,y,theta). The angle is the raw bearing relative to theta,
// not wrapped to [-pi,pi) — callers that need innovations must take that
// into account themselves.
func Observe(landmark spatial.Point, x mat.Vector) *mat.VecDense {
	dx := landmark.X - x.AtVec(0)
	dy := landmark.Y - x.AtVec(1)

	dist := math.Hypot(dx, dy)
	angle := math.Atan2(dy, dx) - x.AtVec(2)

	return mat.NewVecDense(2, []float64{dist, angle})
}

// CalcH returns the 2x3 Jacobian of Observe with respect to x, evaluated
// at (landmark, x).
func CalcH(landmark spatial.Point, x mat.Vector) *mat.Dense {
	dx := landmark.X - x.AtVec(0)
	dy := landmark.Y - x.AtVec(1)

	q := dx*dx + dy*dy
	dist := math.Sqrt(q)

	h := mat.NewDense(2, 3, []float64{
		-dx / dist, -dy / dist, 0,
		dy / q, -dx / q, -1,
	})
	return h
}
