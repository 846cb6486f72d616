// Package estimate provides a basic implementation of filter.Estimate.
package estimate

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// errNilState is returned when a nil state vector is supplied to a
// constructor.
var errNilState = errors.New("estimate: nil state vector")

// Base is a basic filter.Estimate: a state vector with an optional
// covariance matrix.
type Base struct {
	// state is the estimated system state
	state mat.Vector
	// cov is the estimate covariance; nil if unknown
	cov mat.Symmetric
}

// NewBase returns a new Base estimate with no covariance attached.
func NewBase(state mat.Vector) (*Base, error) {
	if state == nil {
		return nil, errNilState
	}
	return &Base{state: state}, nil
}

// NewBaseWithCov returns a new Base estimate carrying covariance cov.
func NewBaseWithCov(state mat.Vector, cov mat.Symmetric) (*Base, error) {
	if state == nil {
		return nil, errNilState
	}
	return &Base{state: state, cov: cov}, nil
}

// Val returns the estimated state.
func (b *Base) Val() mat.Vector {
	return b.state
}

// Cov returns the estimate covariance. It returns nil if the estimate
// was created without one.
func (b *Base) Cov() mat.Symmetric {
	return b.cov
}
