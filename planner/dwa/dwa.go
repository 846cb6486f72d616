// Package dwa implements the Dynamic Window Approach local planner: at
// each tick it samples the rectangle of (v,omega) pairs reachable from
// the previous input within one acceleration-limited step, scores every
// sample's resulting trajectory against the current goal pose, and
// returns the minimum-cost pair.
package dwa

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/model/robot"
	"github.com/milosgajdos/ekfsim/spatial"
)

// ErrEmptyWindow is returned when the acceleration-reachable window
// collapses to an empty interval on either axis.
var ErrEmptyWindow = errors.New("dwa: empty dynamic window")

// ErrNumerical is returned when a candidate's cost evaluates to NaN.
var ErrNumerical = errors.New("dwa: numerical failure scoring a candidate")

// resolution is the linear sample step on both velocity axes.
const resolution = 0.01

// nearGoalSq is the squared-distance threshold that switches from FAR to
// NEAR cost weights.
const nearGoalSq = 0.01

type weights struct {
	heading, velocity, distance, theta float64
}

var nearWeights = weights{heading: 1.0, velocity: 0.01, distance: 0.8, theta: 0.8}
var farWeights = weights{heading: 1.0, velocity: 0.5, distance: 0.8, theta: 0.01}

// Envelope is the subset of agent.Agent's contract the planner needs:
// the velocity and acceleration bounds to sample within at xhat.
type Envelope interface {
	LinearVelocityRange(xhat mat.Vector) (max, min float64)
	AngularVelocityRange(xhat mat.Vector) (max, min float64)
	MaxAccelerations(xhat mat.Vector) (amax, alphamax float64)
}

type candidate struct {
	v, omega float64
}

// Plan samples the dynamic window reachable from uPrev within dt, scores
// each candidate's one-step trajectory from xhat toward goal, and
// returns the minimum-cost (v,omega) pair.
func Plan(env Envelope, xhat, goal, uPrev mat.Vector, dt float64) (*mat.VecDense, error) {
	vmax, vmin := env.LinearVelocityRange(xhat)
	wmax, wmin := env.AngularVelocityRange(xhat)
	amax, alphamax := env.MaxAccelerations(xhat)

	vPrev, wPrev := uPrev.AtVec(0), uPrev.AtVec(1)

	vLo := math.Max(vmin, vPrev-amax*dt)
	vHi := math.Min(vmax, vPrev+amax*dt)
	wLo := math.Max(wmin, wPrev-alphamax*dt)
	wHi := math.Min(wmax, wPrev+alphamax*dt)

	if vHi < vLo || wHi < wLo {
		return nil, ErrEmptyWindow
	}

	vs := spatial.Linspace(vLo, vHi, resolution)
	ws := spatial.Linspace(wLo, wHi, resolution)

	cands := make([]candidate, 0, len(vs)*len(ws))
	for _, v := range vs {
		for _, w := range ws {
			cands = append(cands, candidate{v, w})
		}
	}

	heading := make([]float64, len(cands))
	velocity := make([]float64, len(cands))
	distance := make([]float64, len(cands))
	theta := make([]float64, len(cands))

	gx, gy, gtheta := goal.AtVec(0), goal.AtVec(1), goal.AtVec(2)

	for i, c := range cands {
		u := mat.NewVecDense(2, []float64{c.v, c.omega})
		next := robot.IdealMove(xhat, u, dt)
		nx, ny, ntheta := next.AtVec(0), next.AtVec(1), next.AtVec(2)

		heading[i] = math.Abs(spatial.NormalizeAngle(math.Atan2(gy-ny, gx-nx) - ntheta))
		velocity[i] = robot.MaxV - c.v
		distance[i] = math.Hypot(gx-nx, gy-ny)
		theta[i] = math.Abs(spatial.NormalizeAngle(ntheta - gtheta))
	}

	headingN := spatial.MinMaxNormalize(heading)
	velocityN := spatial.MinMaxNormalize(velocity)
	distanceN := spatial.MinMaxNormalize(distance)
	thetaN := spatial.MinMaxNormalize(theta)

	w := farWeights
	dx, dy := xhat.AtVec(0)-gx, xhat.AtVec(1)-gy
	if dx*dx+dy*dy < nearGoalSq {
		w = nearWeights
	}

	bestIdx := -1
	bestCost := math.Inf(1)
	for i := range cands {
		cost := w.heading*headingN[i] + w.velocity*velocityN[i] + w.distance*distanceN[i] + w.theta*thetaN[i]
		if math.IsNaN(cost) {
			return nil, ErrNumerical
		}
		if cost < bestCost {
			bestCost = cost
			bestIdx = i
		}
	}

	best := cands[bestIdx]
	return mat.NewVecDense(2, []float64{best.v, best.omega}), nil
}
