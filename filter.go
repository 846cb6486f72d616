// Package filter defines the shared abstractions used by every estimator
// in this module: the dynamical system Model an estimator tracks, the
// Noise sources that perturb it, the InitCond it starts from, and the
// Estimate each filter step produces.
package filter

import "gonum.org/v1/gonum/mat"

// Propagator propagates the internal state of a system to the next step,
// given the current state x, control input u and a process noise sample q.
type Propagator interface {
	Propagate(x, u, q mat.Vector) (mat.Vector, error)
}

// Observer observes the external state of a system given its internal
// state x, control input u and a measurement noise sample r.
type Observer interface {
	Observe(x, u, r mat.Vector) (mat.Vector, error)
}

// Model is a model of a dynamical system.
type Model interface {
	Propagator
	Observer
	// SystemDims returns the internal state length (nx), input vector
	// length (nu), external/observed state length (ny) and disturbance
	// vector length (nz).
	SystemDims() (nx, nu, ny, nz int)
}

// Noise is a source of additive noise used by a Model or a Filter.
type Noise interface {
	// Sample draws a random realization of the noise.
	Sample() mat.Vector
	// Cov returns the noise covariance matrix.
	Cov() mat.Symmetric
	// Mean returns the noise mean.
	Mean() []float64
	// Reset reseeds the noise source.
	Reset() error
}

// InitCond is the initial condition a Filter is seeded with.
type InitCond interface {
	State() mat.Vector
	Cov() mat.Symmetric
}

// Estimate is a system state estimate produced by a Filter step.
type Estimate interface {
	// Val returns the estimated state.
	Val() mat.Vector
	// Cov returns the estimate covariance.
	Cov() mat.Symmetric
}
