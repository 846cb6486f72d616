package ekf

import (
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/agent"
	filter "github.com/milosgajdos/ekfsim"
	"github.com/milosgajdos/ekfsim/planner/dwa"
)

// Result is the per-tick output of Sim.Step: the ideal trajectory pose,
// the corrected state estimate, and the covariance/gain the EKF produced
// while reaching it.
type Result struct {
	Ideal *mat.VecDense
	XHat  *mat.VecDense
	Cov   mat.Symmetric
	Gain  mat.Matrix
}

// Sim drives one full tick of the estimation-control loop around an EKF:
// it asks the agent for the ideal pose, asks the DWA planner for the
// next input, has the agent simulate a noisy move and noisy
// observations, and runs the EKF's predict/update over the result. It
// owns the agent exclusively, as required by the ownership rules in
// spec §3.
type Sim struct {
	ekf   *EKF
	agent *agent.Agent

	xhat  *mat.VecDense
	uPrev *mat.VecDense

	startTime time.Time
	lastTick  time.Time
}

// NewSim creates a Sim tracking a through an EKF seeded with init, q and
// r. Δt on the first Step is derived from the gap between NewSim and
// that first call, which is typically ~0.
func NewSim(a *agent.Agent, init filter.InitCond, q, r filter.Noise) (*Sim, error) {
	f, err := New(init, q, r)
	if err != nil {
		return nil, err
	}

	state := init.State().(*mat.VecDense)
	now := time.Now()

	return &Sim{
		ekf:       f,
		agent:     a,
		xhat:      state,
		uPrev:     mat.NewVecDense(2, nil),
		startTime: now,
		lastTick:  now,
	}, nil
}

// Agent returns the Sim's owned agent, for callers that need to read its
// hidden actual pose or last observations (e.g. the scheduler, when
// assembling a record).
func (s *Sim) Agent() *agent.Agent {
	return s.agent
}

// Step runs one end-to-end tick: Δt is derived from the wall-clock gap
// since the last tick (monotonic per the runtime clock), never from an
// external caller-supplied value. A DWA failure logs and reuses the
// previous input rather than aborting the tick, per spec §7.
func (s *Sim) Step() (*Result, error) {
	now := time.Now()
	dt := now.Sub(s.lastTick).Seconds()
	s.lastTick = now

	ideal := s.agent.IdealPose(s.xhat, now.Sub(s.startTime).Seconds())

	u, err := dwa.Plan(s.agent, s.xhat, ideal, s.uPrev, dt)
	if err != nil {
		log.Printf("ekf: dwa plan failed (%v), reusing previous input", err)
		u = mat.NewVecDense(2, nil)
		u.CloneFromVec(s.uPrev)
	}
	s.uPrev = u

	s.agent.NoisyMove(s.xhat, u, dt)
	observations := s.agent.NoisyObserve()

	est, err := s.ekf.Step(s.xhat, u, dt, observations)
	if err != nil {
		return nil, fmt.Errorf("ekf step: %w", err)
	}

	s.xhat = est.Val().(*mat.VecDense)

	return &Result{
		Ideal: ideal,
		XHat:  s.xhat,
		Cov:   s.ekf.Cov(),
		Gain:  s.ekf.Gain(),
	}, nil
}
