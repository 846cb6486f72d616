package dwa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/model/robot"
	"github.com/milosgajdos/ekfsim/spatial"
)

type fakeEnvelope struct {
	vmax, vmin, wmax, wmin, amax, alphamax float64
}

func (e fakeEnvelope) LinearVelocityRange(mat.Vector) (float64, float64)  { return e.vmax, e.vmin }
func (e fakeEnvelope) AngularVelocityRange(mat.Vector) (float64, float64) { return e.wmax, e.wmin }
func (e fakeEnvelope) MaxAccelerations(mat.Vector) (float64, float64) {
	return e.amax, e.alphamax
}

func defaultEnvelope() fakeEnvelope {
	return fakeEnvelope{
		vmax: robot.MaxV, vmin: robot.MinV,
		wmax: robot.MaxOmega, wmin: robot.MinOmega,
		amax: robot.MaxLinearAccel, alphamax: robot.MaxAngularAccel,
	}
}

func TestPlanWithinAccelerationWindow(t *testing.T) {
	assert := assert.New(t)

	env := defaultEnvelope()
	xhat := mat.NewVecDense(3, []float64{1, 0, 1.5707963267948966})
	goal := mat.NewVecDense(3, []float64{1, 0, 1.5707963267948966})
	uPrev := mat.NewVecDense(2, []float64{0, 0})

	u, err := Plan(env, xhat, goal, uPrev, 0.2)
	assert.NoError(err)

	// Window reachable from u_prev=(0,0) within dt=0.2 at amax=alphamax=2.5,
	// clipped to the global envelope (spec §4.4 step 1).
	assert.GreaterOrEqual(u.AtVec(0), -0.2-1e-9)
	assert.LessOrEqual(u.AtVec(0), 0.5+1e-9)
	assert.GreaterOrEqual(u.AtVec(1), -0.5-1e-9)
	assert.LessOrEqual(u.AtVec(1), 0.5+1e-9)
}

func TestPlanEmptyWindow(t *testing.T) {
	assert := assert.New(t)

	env := fakeEnvelope{vmax: -1, vmin: 1, wmax: robot.MaxOmega, wmin: robot.MinOmega, amax: 1, alphamax: 1}
	xhat := mat.NewVecDense(3, []float64{0, 0, 0})
	goal := mat.NewVecDense(3, []float64{1, 1, 0})
	uPrev := mat.NewVecDense(2, []float64{0, 0})

	_, err := Plan(env, xhat, goal, uPrev, 0.2)
	assert.ErrorIs(err, ErrEmptyWindow)
}

func TestPlanZeroDtSingleSamplePerAxis(t *testing.T) {
	assert := assert.New(t)

	env := defaultEnvelope()
	xhat := mat.NewVecDense(3, []float64{0, 0, 0})
	goal := mat.NewVecDense(3, []float64{1, 1, 0})
	uPrev := mat.NewVecDense(2, []float64{0.3, 0.1})

	u, err := Plan(env, xhat, goal, uPrev, 0)
	assert.NoError(err)
	assert.InDelta(0.3, u.AtVec(0), 1e-9)
	assert.InDelta(0.1, u.AtVec(1), 1e-9)
}

// bestForWeights replicates Plan's sampling and scoring but scores
// against a caller-supplied weight set instead of Plan's own NEAR/FAR
// switch, so a test can check which weight set Plan actually picked.
func bestForWeights(env Envelope, xhat, goal, uPrev mat.Vector, dt float64, w weights) *mat.VecDense {
	vmax, vmin := env.LinearVelocityRange(xhat)
	wmax, wmin := env.AngularVelocityRange(xhat)
	amax, alphamax := env.MaxAccelerations(xhat)

	vPrev, wPrev := uPrev.AtVec(0), uPrev.AtVec(1)

	vLo := math.Max(vmin, vPrev-amax*dt)
	vHi := math.Min(vmax, vPrev+amax*dt)
	wLo := math.Max(wmin, wPrev-alphamax*dt)
	wHi := math.Min(wmax, wPrev+alphamax*dt)

	vs := spatial.Linspace(vLo, vHi, resolution)
	ws := spatial.Linspace(wLo, wHi, resolution)

	cands := make([]candidate, 0, len(vs)*len(ws))
	for _, v := range vs {
		for _, o := range ws {
			cands = append(cands, candidate{v, o})
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

	bestIdx := -1
	bestCost := math.Inf(1)
	for i := range cands {
		cost := w.heading*headingN[i] + w.velocity*velocityN[i] + w.distance*distanceN[i] + w.theta*thetaN[i]
		if cost < bestCost {
			bestCost = cost
			bestIdx = i
		}
	}

	best := cands[bestIdx]
	return mat.NewVecDense(2, []float64{best.v, best.omega})
}

func TestPlanPrefersNearGoalDistanceOverVelocity(t *testing.T) {
	assert := assert.New(t)

	env := defaultEnvelope()
	xhat := mat.NewVecDense(3, []float64{0, 0, 0})
	goal := mat.NewVecDense(3, []float64{0.05, 0.05, 0})
	uPrev := mat.NewVecDense(2, []float64{0, 0})
	dt := 0.2

	u, err := Plan(env, xhat, goal, uPrev, dt)
	assert.NoError(err)
	assert.NotNil(u)

	// xhat is within nearGoalSq of goal, so Plan must have scored
	// candidates with nearWeights (low velocity weight, high theta
	// weight), not farWeights (the reverse). Recomputing the winner
	// under each weight set independently and checking Plan's output
	// matches the NEAR winner, not the FAR one, confirms the switch
	// actually happened rather than merely returning a non-nil result.
	nearBest := bestForWeights(env, xhat, goal, uPrev, dt, nearWeights)
	farBest := bestForWeights(env, xhat, goal, uPrev, dt, farWeights)

	assert.NotEqual(nearBest.AtVec(0), farBest.AtVec(0), "fixture should distinguish NEAR from FAR weighting")
	assert.InDelta(nearBest.AtVec(0), u.AtVec(0), 1e-9)
	assert.InDelta(nearBest.AtVec(1), u.AtVec(1), 1e-9)
}
