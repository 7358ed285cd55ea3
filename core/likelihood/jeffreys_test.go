package likelihood

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

func identityTranslate(p tensor.Array) tensor.Array { return p }

func TestNewJeffreysPriorValidation(t *testing.T) {
	resp := identityResponse(2)
	limits := []Limit{NonNegative(), NonNegative()}
	var cfgErr *ConfigurationError

	_, err := NewJeffreysPrior(resp, nil, limits, []float64{1, 1}, JeffreysPriorConfig{})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewJeffreysPrior(resp, identityTranslate, nil, nil, JeffreysPriorConfig{})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewJeffreysPrior(resp, identityTranslate, limits, []float64{1}, JeffreysPriorConfig{})
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewJeffreysPrior(resp, identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{Dx: []float64{1e-3}})
	require.ErrorAs(t, err, &cfgErr)

	j, err := NewJeffreysPrior(resp, identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, j.Defaults())
	assert.Equal(t, 1, j.NumToys())
}

func TestJeffreysFisherMatrixIdentity(t *testing.T) {
	// For an identity response the reco expectation is the parameter vector
	// itself, so F = diag(1/theta_k).
	limits := []Limit{NonNegative(), NonNegative()}
	j, err := NewJeffreysPrior(identityResponse(2), identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{})
	require.NoError(t, err)

	fish, err := j.FisherMatrix([]float64{1, 2}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fish.At(0, 0), 1e-9)
	assert.InDelta(t, 0.5, fish.At(1, 1), 1e-9)
	assert.InDelta(t, 0.0, fish.At(0, 1), 1e-9)

	_, err = j.FisherMatrix([]float64{1, 2}, 1)
	var shapeErr *ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
}

func TestJeffreysLogDensity(t *testing.T) {
	limits := []Limit{NonNegative(), NonNegative()}
	j, err := NewJeffreysPrior(identityResponse(2), identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{})
	require.NoError(t, err)

	// det F = 1 * 0.5 at theta = (1, 2).
	assert.InDelta(t, 0.5*math.Log(0.5), j.LogDensity([]float64{1, 2}, 0), 1e-9)

	// Outside the parameter limits the density vanishes.
	assert.True(t, math.IsInf(j.LogDensity([]float64{-1, 2}, 0), -1))
}

func TestJeffreysTotalTruthLimit(t *testing.T) {
	limits := []Limit{NonNegative(), NonNegative()}
	j, err := NewJeffreysPrior(identityResponse(2), identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{TotalTruthLimit: 2})
	require.NoError(t, err)

	assert.True(t, math.IsInf(j.LogDensity([]float64{1, 2}, 0), -1))
	assert.False(t, math.IsInf(j.LogDensity([]float64{0.5, 1}, 0), -1))
}

func TestJeffreysUnconstrainedParameter(t *testing.T) {
	// The second parameter never reaches reco space, so the Fisher matrix
	// is singular and the prior rejects the parameter point.
	resp := tensor.MustNew([]float64{1, 0}, 1, 2)
	limits := []Limit{NonNegative(), NonNegative()}
	j, err := NewJeffreysPrior(resp, identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{})
	require.NoError(t, err)

	d := j.LogDensity([]float64{1, 1}, 0)
	assert.True(t, math.IsInf(d, -1) || math.IsNaN(d))
}

func TestJeffreysStackedResponse(t *testing.T) {
	id := identityResponse(2)
	respData := append(append([]float64{}, id.Data...), 0.5, 0, 0, 0.5)
	resp := tensor.MustNew(respData, 2, 2, 2)

	limits := []Limit{NonNegative(), NonNegative()}
	j, err := NewJeffreysPrior(resp, identityTranslate, limits, []float64{1, 1}, JeffreysPriorConfig{})
	require.NoError(t, err)
	assert.Equal(t, 2, j.NumToys())

	// Scaled response: dLambda/dTheta = 0.5, Lambda = 0.5 theta, so
	// F_kk = 0.25 / (0.5 theta_k).
	fish, err := j.FisherMatrix([]float64{1, 2}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fish.At(0, 0), 1e-9)
	assert.InDelta(t, 0.25, fish.At(1, 1), 1e-9)
}
