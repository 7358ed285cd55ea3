package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesShape(t *testing.T) {
	_, err := New([]float64{1, 2, 3}, 2, 2)
	require.Error(t, err)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)

	_, err = New([]float64{1, 2}, -1, 2)
	require.Error(t, err)

	a, err := New([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, a.Shape)
	assert.Equal(t, 4, a.Len())
}

func TestScalarAndVector(t *testing.T) {
	s := Scalar(3.5)
	assert.True(t, s.IsScalar())
	assert.Equal(t, 3.5, s.ScalarValue())
	assert.Equal(t, 1, s.LastDim())
	assert.Equal(t, 1, Size(s.Shape))

	v := Vector([]float64{1, 2, 3})
	assert.Equal(t, []int{3}, v.Shape)
	assert.Empty(t, v.Batch())
	assert.Equal(t, 1, v.NumRows())
}

func TestRowIteration(t *testing.T) {
	a := MustNew([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, 2, a.NumRows())
	assert.Equal(t, []float64{1, 2, 3}, a.Row(0))
	assert.Equal(t, []float64{4, 5, 6}, a.Row(1))

	// Higher-rank arrays flatten their leading axes.
	b := MustNew(make([]float64, 24), 2, 3, 4)
	assert.Equal(t, 6, b.NumRows())
	assert.Equal(t, []int{2, 3}, b.Batch())
}

func TestReshape(t *testing.T) {
	a := MustNew([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b, err := a.Reshape(6)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, b.Shape)

	_, err = a.Reshape(4)
	require.Error(t, err)
}

func TestRavelUnravel(t *testing.T) {
	shape := []int{2, 3, 4}
	off, err := Ravel([]int{1, 2, 3}, shape)
	require.NoError(t, err)
	assert.Equal(t, 23, off)
	assert.Equal(t, []int{1, 2, 3}, Unravel(23, shape))

	_, err = Ravel([]int{2, 0, 0}, shape)
	require.Error(t, err)
	_, err = Ravel([]int{0, 0}, shape)
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	a := MustNew([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	sel, err := Select(a, []bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, sel.Shape)
	assert.Equal(t, []float64{1, 3, 4, 6}, sel.Data)

	_, err = Select(a, []bool{true, false})
	require.Error(t, err)
	_, err = Select(a, []bool{false, false, false})
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	a := MustNew([]float64{1, 2}, 2)
	b := a.Clone()
	b.Data[0] = 9
	assert.Equal(t, 1.0, a.Data[0])
}
