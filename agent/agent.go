// Package agent implements the three trajectory generators the filter
// tracks: Circular, Square and Waypoints. Each variant shares the same
// capability set (ideal pose, velocity/acceleration envelopes, noisy
// motion and observation) but computes its ideal pose and, for
// Waypoints, its envelopes, differently. Shared state (landmarks, the
// hidden actual pose, the most recent observations) lives on Agent
// itself; variant-specific state (the waypoint index) lives in its own
// field rather than a process-wide global.
package agent

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	filter "github.com/milosgajdos/ekfsim"
	"github.com/milosgajdos/ekfsim/model/camera"
	"github.com/milosgajdos/ekfsim/model/robot"
	"github.com/milosgajdos/ekfsim/noise"
	"github.com/milosgajdos/ekfsim/spatial"
)

// Kind selects which trajectory generator an Agent follows.
type Kind int

const (
	Circular Kind = iota
	Square
	Waypoints
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Circular:
		return "circular"
	case Square:
		return "square"
	case Waypoints:
		return "waypoints"
	default:
		return "unknown"
	}
}

// Parse maps a case-insensitive CLI agent name to a Kind. It is the
// out-of-scope argument parser's only contact point with this package.
func Parse(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "circular":
		return Circular, nil
	case "square":
		return Square, nil
	case "waypoints":
		return Waypoints, nil
	default:
		return 0, fmt.Errorf("unknown agent %q, want one of circular, square, waypoints", name)
	}
}

// Noise sigmas applied on top of the deterministic motion/observation
// models, per spec.
const (
	moveSigmaXY    = 0.005
	moveSigmaTheta = 0.01
	obsSigmaDist   = 0.02
	obsSigmaAngle  = 0.02

	// nearTargetSq and nearTargetTheta gate the Waypoints envelope
	// narrowing and its index advance.
	nearTargetSq    = 0.01
	nearTargetTheta = math.Pi / 18
)

// NewMoveNoise builds the Gaussian noise NoisyMove adds to the ideal
// motion model: independent sigma 0.005 on x,y and 0.01 on theta.
func NewMoveNoise() (filter.Noise, error) {
	cov := mat.NewSymDense(3, []float64{
		moveSigmaXY * moveSigmaXY, 0, 0,
		0, moveSigmaXY * moveSigmaXY, 0,
		0, 0, moveSigmaTheta * moveSigmaTheta,
	})
	return noise.NewGaussian(make([]float64, 3), cov)
}

// NewObsNoise builds the Gaussian noise NoisyObserve adds to the ideal
// bearing-range reading: independent sigma 0.02 on distance and angle.
func NewObsNoise() (filter.Noise, error) {
	cov := mat.NewSymDense(2, []float64{
		obsSigmaDist * obsSigmaDist, 0,
		0, obsSigmaAngle * obsSigmaAngle,
	})
	return noise.NewGaussian(make([]float64, 2), cov)
}

// waypointTargets is the fixed cycle of target poses the Waypoints
// variant chases, in order.
var waypointTargets = [][3]float64{
	{1, 0.5, 3 * math.Pi / 4},
	{0.5, 1, -math.Pi},
	{-0.5, 1, -math.Pi / 2},
	{-0.5, -1, 0},
	{1, -1, math.Pi / 2},
}

// Agent is a polymorphic trajectory generator. It owns the hidden actual
// pose the simulated robot occupies and the most recent noisy landmark
// observations; the EKF owns the Agent and reads both through accessors.
type Agent struct {
	kind      Kind
	landmarks []spatial.Point

	hiddenActual *mat.VecDense
	lastObserved []spatial.Observation

	moveNoise filter.Noise
	obsNoise  filter.Noise

	// waypointIdx only advances for the Waypoints variant.
	waypointIdx int
}

// New creates an Agent of kind watching landmarks, perturbing its hidden
// motion with moveNoise and its observations with obsNoise. Both noise
// sources must be non-nil.
func New(kind Kind, landmarks []spatial.Point, moveNoise, obsNoise filter.Noise) (*Agent, error) {
	if moveNoise == nil || obsNoise == nil {
		return nil, fmt.Errorf("agent: move and observation noise must not be nil")
	}

	return &Agent{
		kind:         kind,
		landmarks:    landmarks,
		hiddenActual: mat.NewVecDense(3, nil),
		moveNoise:    moveNoise,
		obsNoise:     obsNoise,
	}, nil
}

// HiddenActual returns the agent's current hidden actual pose.
func (a *Agent) HiddenActual() *mat.VecDense {
	p := mat.NewVecDense(3, nil)
	p.CloneFromVec(a.hiddenActual)
	return p
}

// LastObserved returns the observations produced by the most recent call
// to NoisyObserve, or nil before the first call.
func (a *Agent) LastObserved() []spatial.Observation {
	return a.lastObserved
}

// IdealPose returns the trajectory's target pose at elapsed seconds,
// given the current state estimate xhat. For Waypoints this may advance
// the current target for the next call; the returned pose is always the
// target that was current when this call began.
func (a *Agent) IdealPose(xhat mat.Vector, elapsed float64) *mat.VecDense {
	switch a.kind {
	case Circular:
		return circularPose(elapsed)
	case Square:
		return squarePose(elapsed)
	case Waypoints:
		return a.waypointsPose(xhat)
	default:
		return circularPose(elapsed)
	}
}

// LinearVelocityRange returns (max, min) linear velocity for the agent at
// xhat. Waypoints narrows this near its current target.
func (a *Agent) LinearVelocityRange(xhat mat.Vector) (max, min float64) {
	max, min = robot.MaxV, robot.MinV
	if a.kind == Waypoints && a.nearCurrentTarget(xhat) {
		return max * 0.1, min * 0.1
	}
	return max, min
}

// AngularVelocityRange returns (max, min) angular velocity for the agent
// at xhat. Waypoints narrows this near its current target.
func (a *Agent) AngularVelocityRange(xhat mat.Vector) (max, min float64) {
	max, min = robot.MaxOmega, robot.MinOmega
	if a.kind == Waypoints && a.nearCurrentTarget(xhat) {
		return max * 0.8, min * 0.8
	}
	return max, min
}

// MaxAccelerations returns (amax, alphamax) for the agent at xhat.
// Waypoints narrows this near its current target.
func (a *Agent) MaxAccelerations(xhat mat.Vector) (amax, alphamax float64) {
	amax, alphamax = robot.MaxLinearAccel, robot.MaxAngularAccel
	if a.kind == Waypoints && a.nearCurrentTarget(xhat) {
		return amax * 0.8, alphamax * 0.8
	}
	return amax, alphamax
}

// NoisyMove computes the deterministic move from prevEstimate under u
// over dt seconds and perturbs it with moveNoise, storing the result as
// the new hidden actual pose.
func (a *Agent) NoisyMove(prevEstimate mat.Vector, u mat.Vector, dt float64) {
	ideal := robot.IdealMove(prevEstimate, u, dt)
	n := a.moveNoise.Sample()

	a.hiddenActual = mat.NewVecDense(3, []float64{
		ideal.AtVec(0) + n.AtVec(0),
		ideal.AtVec(1) + n.AtVec(1),
		spatial.NormalizeAngle(ideal.AtVec(2) + n.AtVec(2)),
	})
}

// NoisyObserve computes a bearing-range reading of every landmark from
// the hidden actual pose, perturbs each with obsNoise, stores the result
// and returns it. The stored angle is normalized to [-pi,pi) to satisfy
// the Observation invariant even though camera.Observe itself does not
// wrap the bearing; kalman/ekf wraps the bearing innovation to account
// for this.
func (a *Agent) NoisyObserve() []spatial.Observation {
	obs := make([]spatial.Observation, len(a.landmarks))
	for i, lm := range a.landmarks {
		truth := camera.Observe(lm, a.hiddenActual)
		n := a.obsNoise.Sample()

		obs[i] = spatial.Observation{
			Landmark: lm,
			Distance: truth.AtVec(0) + n.AtVec(0),
			Angle:    spatial.NormalizeAngle(truth.AtVec(1) + n.AtVec(1)),
		}
	}
	a.lastObserved = obs
	return obs
}

func circularPose(t float64) *mat.VecDense {
	theta := spatial.NormalizeAngle(0.4*t + math.Pi/2)
	return mat.NewVecDense(3, []float64{math.Cos(0.4 * t), math.Sin(0.4 * t), theta})
}

const (
	squareV     = 0.3
	squareOmega = 0.5
)

// squareDurations are d1..d9 from spec §4.3: straight legs alternate with
// quarter-turn pivots, closing a square of side 2 centered on the origin.
var squareDurations = [9]float64{
	1 / squareV,
	math.Pi / (2 * squareOmega),
	2 / squareV,
	math.Pi / (2 * squareOmega),
	2 / squareV,
	math.Pi / (2 * squareOmega),
	2 / squareV,
	math.Pi / (2 * squareOmega),
	1 / squareV,
}

// squareSegmentStarts is the pose at the start of each of the nine
// segments above; even indices are straight-line starts, odd indices are
// pivot starts.
var squareSegmentStarts = [9][3]float64{
	{1, 0, math.Pi / 2},
	{1, 1, math.Pi / 2},
	{1, 1, math.Pi},
	{-1, 1, math.Pi},
	{-1, 1, 3 * math.Pi / 2},
	{-1, -1, 3 * math.Pi / 2},
	{-1, -1, 2 * math.Pi},
	{1, -1, 2 * math.Pi},
	{1, -1, 2*math.Pi + math.Pi/2},
}

func squarePeriod() float64 {
	t := 0.0
	for _, d := range squareDurations {
		t += d
	}
	return t
}

func squarePose(t float64) *mat.VecDense {
	period := squarePeriod()
	tau := math.Mod(t, period)
	if tau < 0 {
		tau += period
	}

	elapsed := 0.0
	for i, d := range squareDurations {
		last := i == len(squareDurations)-1
		if tau < elapsed+d || last {
			local := tau - elapsed
			start := squareSegmentStarts[i]

			var x, y, theta float64
			if i%2 == 0 {
				x = start[0] + squareV*local*math.Cos(start[2])
				y = start[1] + squareV*local*math.Sin(start[2])
				theta = start[2]
			} else {
				x, y = start[0], start[1]
				theta = start[2] + squareOmega*local
			}
			return mat.NewVecDense(3, []float64{x, y, spatial.NormalizeAngle(theta)})
		}
		elapsed += d
	}

	// unreachable: the loop above always returns on its last iteration.
	s := squareSegmentStarts[0]
	return mat.NewVecDense(3, []float64{s[0], s[1], s[2]})
}

// waypointsPose returns the current target, then advances the index for
// the next call if xhat is already within the near-target threshold of
// it. The advance is visible to the rest of this tick (the envelope
// getters called after IdealPose read the advanced index, per spec §9),
// but the pose returned by this call is always the one the caller was
// just asked to chase, never the one it jumps to next.
func (a *Agent) waypointsPose(xhat mat.Vector) *mat.VecDense {
	target := waypointTargets[a.waypointIdx]
	result := mat.NewVecDense(3, []float64{target[0], target[1], target[2]})
	if nearPose(xhat, target) {
		a.waypointIdx = (a.waypointIdx + 1) % len(waypointTargets)
	}
	return result
}

// nearCurrentTarget reports whether xhat is within the Waypoints
// near-target threshold of the current (possibly just-advanced) target.
func (a *Agent) nearCurrentTarget(xhat mat.Vector) bool {
	return nearPose(xhat, waypointTargets[a.waypointIdx])
}

func nearPose(xhat mat.Vector, target [3]float64) bool {
	dx := target[0] - xhat.AtVec(0)
	dy := target[1] - xhat.AtVec(1)
	distSq := dx*dx + dy*dy

	dtheta := math.Abs(spatial.NormalizeAngle(target[2] - xhat.AtVec(2)))

	return distSq < nearTargetSq && dtheta < nearTargetTheta
}
