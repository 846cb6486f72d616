// Package ekf implements the Extended Kalman Filter used to track the
// robot pose: a deterministic predict step driven by the unicycle motion
// model, followed by one sequential update per landmark observation using
// the bearing-range camera model. Jacobians are computed analytically,
// not by finite differences. The bearing innovation is wrapped to
// [-pi,pi): observation angles are stored normalized while
// camera.Observe's predicted bearing is not, so the raw difference can be
// off by a multiple of 2*pi even when the estimate is exact.
package ekf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/estimate"
	filter "github.com/milosgajdos/ekfsim"
	"github.com/milosgajdos/ekfsim/matrix"
	"github.com/milosgajdos/ekfsim/model/camera"
	"github.com/milosgajdos/ekfsim/model/robot"
	"github.com/milosgajdos/ekfsim/spatial"
)

// EKF tracks a 3-dimensional robot pose (x, y, theta) observed through a
// 2-dimensional bearing-range camera model.
type EKF struct {
	// q is the process noise added to the predicted covariance
	q filter.Noise
	// r is the measurement noise added to the innovation covariance
	r filter.Noise
	// p is the current state covariance
	p *mat.SymDense
	// k is the Kalman gain from the most recent observation update
	k *mat.Dense
}

// New creates a new EKF seeded with init and returns it. q and r must not
// be nil.
func New(init filter.InitCond, q, r filter.Noise) (*EKF, error) {
	if q == nil || r == nil {
		return nil, fmt.Errorf("ekf: process and measurement noise must not be nil")
	}

	p := mat.NewSymDense(init.Cov().SymmetricDim(), nil)
	p.CopySym(init.Cov())

	return &EKF{
		q: q,
		r: r,
		p: p,
		k: mat.NewDense(3, 2, nil),
	}, nil
}

// Predict advances the state estimate x by control input u over dt
// seconds using the deterministic unicycle model, and propagates the
// covariance through the analytic motion Jacobian plus process noise.
func (f *EKF) Predict(x, u *mat.VecDense, dt float64) (filter.Estimate, error) {
	xNext := robot.IdealMove(x, u, dt)
	fJac := robot.CalcF(x, u, dt)

	cov := &mat.Dense{}
	cov.Mul(fJac, f.p)
	cov.Mul(cov, fJac.T())
	cov.Add(cov, f.q.Cov())

	pNext, err := matrix.ToSymDense(cov)
	if err != nil {
		return nil, fmt.Errorf("ekf: predicted covariance not symmetric: %w", err)
	}
	f.p = pNext

	return estimate.NewBaseWithCov(xNext, f.p)
}

// Update corrects the state estimate x using a single bearing-range
// observation z of landmark. It returns the corrected estimate; the
// Kalman gain used is retained and can be read back with Gain.
func (f *EKF) Update(x *mat.VecDense, landmark spatial.Point, z mat.Vector) (filter.Estimate, error) {
	h := camera.CalcH(landmark, x)

	pxy := &mat.Dense{}
	pxy.Mul(f.p, h.T())

	s := &mat.Dense{}
	s.Mul(h, pxy)
	s.Add(s, f.r.Cov())

	if det := mat.Det(s); det < 1e-12 {
		return nil, fmt.Errorf("ekf: degenerate innovation covariance, det=%g", det)
	}

	sInv := &mat.Dense{}
	if err := sInv.Inverse(s); err != nil {
		return nil, fmt.Errorf("ekf: failed to invert innovation covariance: %v", err)
	}

	gain := &mat.Dense{}
	gain.Mul(pxy, sInv)

	pred := camera.Observe(landmark, x)
	inn := &mat.VecDense{}
	inn.SubVec(z, pred)
	inn.SetVec(1, spatial.NormalizeAngle(inn.AtVec(1)))

	corr := &mat.Dense{}
	corr.Mul(gain, inn)

	xNext := mat.NewVecDense(x.Len(), nil)
	xNext.AddVec(x, corr.ColView(0))
	xNext.SetVec(2, spatial.NormalizeAngle(xNext.AtVec(2)))

	eye := mat.NewDiagDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		eye.SetDiag(i, 1.0)
	}
	kh := &mat.Dense{}
	kh.Mul(gain, h)
	a := &mat.Dense{}
	a.Sub(eye, kh)

	pCorr := &mat.Dense{}
	pCorr.Mul(a, f.p)

	pNext, err := matrix.ToSymDense(pCorr)
	if err != nil {
		return nil, fmt.Errorf("ekf: corrected covariance not symmetric: %w", err)
	}
	f.p = pNext
	f.k.Copy(gain)

	return estimate.NewBaseWithCov(xNext, f.p)
}

// Step runs one full filter tick: a predict over dt followed by one
// sequential update per entry in observations. A degenerate observation
// (singular innovation covariance) is skipped rather than aborting the
// tick, per the FilterDegenerate recovery policy: that observation's
// update simply does not move x̂, P. ResetGain is called after the
// predict and before the updates, so a tick whose updates all skip
// reports a zero gain, not a stale one.
func (f *EKF) Step(x *mat.VecDense, u *mat.VecDense, dt float64, observations []spatial.Observation) (filter.Estimate, error) {
	pred, err := f.Predict(x, u, dt)
	if err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	f.ResetGain()

	xhat := pred.Val().(*mat.VecDense)
	est := pred
	for _, obs := range observations {
		z := mat.NewVecDense(2, []float64{obs.Distance, obs.Angle})

		next, err := f.Update(xhat, obs.Landmark, z)
		if err != nil {
			continue
		}
		est = next
		xhat = est.Val().(*mat.VecDense)
	}

	return est, nil
}

// Cov returns a copy of the current state covariance.
func (f *EKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(f.p.SymmetricDim(), nil)
	cov.CopySym(f.p)
	return cov
}

// Gain returns the Kalman gain from the most recent observation update.
func (f *EKF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(f.k)
	return gain
}

// ResetGain zeroes the retained Kalman gain. Step calls this once per
// tick before its observation loop so that a tick with zero
// observations, or one whose updates all fail, reports K=0 rather than
// a value left over from a previous tick.
func (f *EKF) ResetGain() {
	f.k = mat.NewDense(3, 2, nil)
}
