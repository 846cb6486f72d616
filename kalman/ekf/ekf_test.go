package ekf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	filter "github.com/milosgajdos/ekfsim"
	"github.com/milosgajdos/ekfsim/noise"
	"github.com/milosgajdos/ekfsim/sim"
	"github.com/milosgajdos/ekfsim/spatial"
)

// tinyCov returns an n×n diagonal covariance small enough that seeded
// samples drawn from it are negligible; noise.NewGaussianSeeded rejects
// an all-zero covariance because it is not positive definite.
func tinyCov(n int) *mat.SymDense {
	c := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		c.SetSym(i, i, 1e-12)
	}
	return c
}

func newTestEKF(t *testing.T) (*EKF, filter.InitCond) {
	state := mat.NewVecDense(3, []float64{1.0, 0.0, math.Pi / 2})
	cov := mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	init := sim.NewInitCond(state, cov)

	q, err := noise.NewGaussianSeeded(make([]float64, 3), tinyCov(3), 1)
	assert.NoError(t, err)
	r, err := noise.NewGaussianSeeded(make([]float64, 2), tinyCov(2), 2)
	assert.NoError(t, err)

	f, err := New(init, q, r)
	assert.NoError(t, err)
	assert.NotNil(t, f)

	return f, init
}

func TestNewRejectsNilNoise(t *testing.T) {
	assert := assert.New(t)

	_, init := newTestEKF(t)

	f, err := New(init, nil, nil)
	assert.Nil(f)
	assert.Error(err)
}

func TestPredictDeterministic(t *testing.T) {
	assert := assert.New(t)

	f, init := newTestEKF(t)
	x := init.State().(*mat.VecDense)
	u := mat.NewVecDense(2, []float64{0.5, 0.1})

	est1, err := f.Predict(x, u, 0.2)
	assert.NoError(err)

	f2, _ := newTestEKF(t)
	est2, err := f2.Predict(x, u, 0.2)
	assert.NoError(err)

	for i := 0; i < 3; i++ {
		assert.InDelta(est1.Val().AtVec(i), est2.Val().AtVec(i), 1e-12)
	}
}

func TestUpdateReducesUncertainty(t *testing.T) {
	assert := assert.New(t)

	f, init := newTestEKF(t)
	x := init.State().(*mat.VecDense)

	before := f.Cov()
	landmark := spatial.Point{X: 1.1, Y: 1.1}
	z := mat.NewVecDense(2, []float64{math.Hypot(0.1, 1.1), math.Atan2(1.1, 0.1) - x.AtVec(2)})

	est, err := f.Update(x, landmark, z)
	assert.NoError(err)
	assert.NotNil(est)

	after := f.Cov()
	assert.True(mat.Trace(after) <= mat.Trace(before))
}

func TestStepSequentialUpdates(t *testing.T) {
	assert := assert.New(t)

	f, init := newTestEKF(t)
	x := init.State().(*mat.VecDense)
	u := mat.NewVecDense(2, []float64{0.3, 0.0})

	obs := []spatial.Observation{
		{Landmark: spatial.Point{X: 1.1, Y: 1.1}, Distance: 1.0, Angle: 0.1},
		{Landmark: spatial.Point{X: -1.1, Y: 1.1}, Distance: 1.5, Angle: -0.2},
	}

	est, err := f.Step(x, u, 0.2, obs)
	assert.NoError(err)
	assert.NotNil(est)
	assert.Equal(3, est.Val().Len())

	gain := f.Gain()
	r, c := gain.Dims()
	assert.Equal(3, r)
	assert.Equal(2, c)
}

func TestCovIsCopy(t *testing.T) {
	assert := assert.New(t)

	f, _ := newTestEKF(t)
	cov := f.Cov()
	cov.(*mat.SymDense).SetSym(0, 0, 999)

	assert.NotEqual(999.0, f.Cov().At(0, 0))
}
