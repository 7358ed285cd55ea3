package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// concaveQuadratic peaks at the given center with curvature one per axis.
func concaveQuadratic(center []float64) Objective {
	return func(x []float64) float64 {
		var s float64
		for i := range x {
			d := x[i] - center[i]
			s -= d * d
		}
		return s
	}
}

func TestPerturbRefineRecoversInteriorOptimum(t *testing.T) {
	center := []float64{1.5, -2.0, 0.25}
	bounds := []Bound{
		{Lower: -10, Upper: 10},
		{Lower: -10, Upper: 10},
		{Lower: -10, Upper: 10},
	}

	res, err := Maximize(concaveQuadratic(center), bounds, Config{
		Method: MethodPerturbRefine,
		Seed:   12345,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.LogProbability, 1e-6)
	for i := range center {
		assert.InDelta(t, center[i], res.Parameters[i], 1e-4, "parameter %d", i)
	}
	assert.Positive(t, res.Evaluations)
}

func TestPerturbRefineBoundaryOptimum(t *testing.T) {
	// Peak outside the box: the constrained optimum sits on the boundary.
	center := []float64{5, 5}
	bounds := []Bound{
		{Lower: 0, Upper: 1},
		{Lower: 0, Upper: 1},
	}

	res, err := Maximize(concaveQuadratic(center), bounds, Config{Seed: 99})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Parameters[0], 1e-6)
	assert.InDelta(t, 1.0, res.Parameters[1], 1e-6)
}

func TestPerturbRefineOneSidedBounds(t *testing.T) {
	center := []float64{0.0, 1.0, 2.0, 3.0}
	bounds := []Bound{
		{Lower: 0, Upper: math.Inf(1)},
		{Lower: 0, Upper: math.Inf(1)},
		{Lower: 0, Upper: math.Inf(1)},
		{Lower: 0, Upper: math.Inf(1)},
	}

	res, err := Maximize(concaveQuadratic(center), bounds, Config{Seed: 4})
	require.NoError(t, err)
	for i := range center {
		assert.InDelta(t, center[i], res.Parameters[i], 1e-4, "parameter %d", i)
	}
}

func TestGlobalSearchRecoversOptimum(t *testing.T) {
	center := []float64{0.75, -0.25}
	bounds := []Bound{
		{Lower: -2, Upper: 2},
		{Lower: -2, Upper: 2},
	}

	res, err := Maximize(concaveQuadratic(center), bounds, Config{
		Method:     MethodGlobalSearch,
		Iterations: 300,
		Seed:       271828,
	})
	require.NoError(t, err)
	for i := range center {
		assert.InDelta(t, center[i], res.Parameters[i], 1e-3, "parameter %d", i)
	}
}

func TestGlobalSearchRejectsInfiniteBounds(t *testing.T) {
	bounds := []Bound{{Lower: 0, Upper: math.Inf(1)}}
	_, err := Maximize(concaveQuadratic([]float64{1}), bounds, Config{Method: MethodGlobalSearch})
	require.Error(t, err)
}

func TestMaximizeRequiresBounds(t *testing.T) {
	_, err := Maximize(concaveQuadratic(nil), nil, Config{})
	require.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("global-search")
	require.NoError(t, err)
	assert.Equal(t, MethodGlobalSearch, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodPerturbRefine, m)

	_, err = ParseMethod("annealing")
	require.Error(t, err)
	var unknown *UnknownMethodError
	require.ErrorAs(t, err, &unknown)
}

func TestObjectiveWithInfinitePlateau(t *testing.T) {
	// -Inf outside a small disc around the optimum; the search must still
	// find its way in via random perturbation.
	obj := func(x []float64) float64 {
		d := (x[0] - 2) * (x[0] - 2)
		if d > 4 {
			return math.Inf(-1)
		}
		return -d
	}
	bounds := []Bound{{Lower: -10, Upper: 10}}

	res, err := Maximize(obj, bounds, Config{Seed: 31, Iterations: 200})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Parameters[0], 1e-4)
}
