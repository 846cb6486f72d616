// Package robot implements the unicycle motion model the filter tracks:
// the ideal (noise-free) state transition and its analytic Jacobian with
// respect to the state.
package robot

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/spatial"
)

// Kinematic limits of the simulated robot.
const (
	MaxV = 2.0
	MinV = -0.2

	MaxOmega = 1.5
	MinOmega = -1.5

	MaxLinearAccel  = 2.5
	MaxAngularAccel = 2.5
)

// IdealMove advances state x=(x,y,theta) by control u=(v,omega) over dt
// seconds using midpoint-angle integration: position is updated with the
// heading halfway between the old and new theta, which keeps the
// discretized unicycle model well behaved at high angular rates.
func IdealMove(x, u mat.Vector, dt float64) *mat.VecDense {
	px, py, theta := x.AtVec(0), x.AtVec(1), x.AtVec(2)
	v, omega := u.AtVec(0), u.AtVec(1)

	mid := theta + omega*dt/2
	thetaNext := spatial.NormalizeAngle(theta + omega*dt)

	xNext := px + v*dt*math.Cos(mid)
	yNext := py + v*dt*math.Sin(mid)

	return mat.NewVecDense(3, []float64{xNext, yNext, thetaNext})
}

// CalcF returns the 3x3 Jacobian of IdealMove with respect to x, evaluated
// at (x, u, dt).
func CalcF(x, u mat.Vector, dt float64) *mat.Dense {
	theta := x.AtVec(2)
	v := u.AtVec(0)
	omega := u.AtVec(1)

	mid := theta + omega*dt/2

	f := mat.NewDense(3, 3, []float64{
		1, 0, -v * dt * math.Sin(mid),
		0, 1, v * dt * math.Cos(mid),
		0, 0, 1,
	})
	return f
}
