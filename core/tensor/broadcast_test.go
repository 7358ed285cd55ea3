package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractSingle(t *testing.T) {
	// 2x3 matrix times length-3 vector.
	resp := MustNew([]float64{
		1, 0, 2,
		0, 1, 1,
	}, 2, 3)
	truth := Vector([]float64{1, 2, 3})

	reco, err := Contract(resp, truth)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, reco.Shape)
	assert.InDelta(t, 7.0, reco.Data[0], 1e-12)
	assert.InDelta(t, 5.0, reco.Data[1], 1e-12)
}

func TestContractOuterBatch(t *testing.T) {
	// Response batch (2,), truth batch (3,): result shape (2, 3, m).
	resp := MustNew([]float64{
		1, 0,
		0, 1,

		2, 0,
		0, 2,
	}, 2, 2, 2)
	truth := MustNew([]float64{
		1, 1,
		2, 2,
		3, 3,
	}, 3, 2)

	reco, err := Contract(resp, truth)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 2}, reco.Shape)

	// First matrix is identity, second doubles.
	assert.Equal(t, []float64{1, 1}, reco.Row(0))
	assert.Equal(t, []float64{3, 3}, reco.Row(2))
	assert.Equal(t, []float64{2, 2}, reco.Row(3))
	assert.Equal(t, []float64{6, 6}, reco.Row(5))
}

func TestContractShapeErrors(t *testing.T) {
	_, err := Contract(Vector([]float64{1, 2}), Vector([]float64{1, 2}))
	require.Error(t, err)

	resp := MustNew([]float64{1, 0, 0, 1}, 2, 2)
	_, err = Contract(resp, Vector([]float64{1, 2, 3}))
	require.Error(t, err)
}

func TestOuterMap(t *testing.T) {
	a := MustNew([]float64{1, 2, 3, 4}, 2, 2)
	b := MustNew([]float64{10, 10, 20, 20, 30, 30}, 3, 2)

	sum := func(x, y []float64) float64 {
		var s float64
		for i := range x {
			s += x[i] + y[i]
		}
		return s
	}
	out := OuterMap(a, b, sum)
	assert.Equal(t, []int{2, 3}, out.Shape)
	assert.Equal(t, 23.0, out.Data[0]) // (1+2) + (10+10)
	assert.Equal(t, 67.0, out.Data[5]) // (3+4) + (30+30)
}
