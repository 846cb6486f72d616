package robot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestIdealMoveZeroInput(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(3, []float64{1.0, 2.0, math.Pi / 4})
	u := mat.NewVecDense(2, []float64{0, 0})

	xNext := IdealMove(x, u, 0.2)
	for i := 0; i < 3; i++ {
		assert.InDelta(x.AtVec(i), xNext.AtVec(i), 1e-12)
	}
}

func TestIdealMoveStraightLine(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(3, []float64{0, 0, 0})
	u := mat.NewVecDense(2, []float64{1.0, 0})

	xNext := IdealMove(x, u, 1.0)
	assert.InDelta(1.0, xNext.AtVec(0), 1e-9)
	assert.InDelta(0.0, xNext.AtVec(1), 1e-9)
	assert.InDelta(0.0, xNext.AtVec(2), 1e-9)
}

func TestCalcFIdentityAtZeroInput(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(3, []float64{0, 0, 0})
	u := mat.NewVecDense(2, []float64{0, 0})

	f := CalcF(x, u, 0.2)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(want, f.At(i, j), 1e-12)
		}
	}
}

func TestCalcFShape(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(3, []float64{0, 0, math.Pi / 3})
	u := mat.NewVecDense(2, []float64{1.2, 0.5})

	f := CalcF(x, u, 0.1)
	r, c := f.Dims()
	assert.Equal(3, r)
	assert.Equal(3, c)
	assert.InDelta(1.0, f.At(0, 0), 1e-12)
	assert.InDelta(1.0, f.At(1, 1), 1e-12)
	assert.InDelta(1.0, f.At(2, 2), 1e-12)
	assert.InDelta(0.0, f.At(2, 0), 1e-12)
	assert.InDelta(0.0, f.At(2, 1), 1e-12)
}
