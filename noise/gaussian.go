package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov mat.Symmetric
	// src is the source used to (re)build dist; nil means time-seeded
	src rand.Source
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// The noise source is seeded from the wall clock, so two Gaussians built
// this way do not produce the same sequence of samples.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return newGaussian(mean, cov, nil)
}

// NewGaussianSeeded creates new Gaussian noise with given mean and
// covariance whose sample sequence is fully determined by seed. This is
// used by tests and simulation scenarios that must be reproducible.
func NewGaussianSeeded(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	return newGaussian(mean, cov, rand.NewSource(seed))
}

func newGaussian(mean []float64, cov mat.Symmetric, src rand.Source) (*Gaussian, error) {
	dist, ok := newGaussianDist(mean, cov, src)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
		src:  src,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// Reset resets Gaussian noise. A Gaussian built with NewGaussian is
// reseeded from the wall clock; one built with NewGaussianSeeded keeps
// drawing from its existing source, which is not rewound to its seed.
// It returns error if it fails to reset the noise.
func (g *Gaussian) Reset() error {
	dist, ok := newGaussianDist(g.mean, g.cov, g.src)
	if !ok {
		return fmt.Errorf("failed to reset Gaussian noise")
	}
	g.dist = dist

	return nil
}

func newGaussianDist(mean []float64, cov mat.Symmetric, src rand.Source) (*distmv.Normal, bool) {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return distmv.NewNormal(mean, cov, src)
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
