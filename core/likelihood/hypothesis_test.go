package likelihood

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

func TestNewCompositeHypothesisValidation(t *testing.T) {
	id := func(p tensor.Array) tensor.Array { return p }

	var cfgErr *ConfigurationError

	_, err := NewCompositeHypothesis(nil, []Limit{NonNegative()}, nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewCompositeHypothesis(id, nil, nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	h, err := NewCompositeHypothesis(id, []Limit{NonNegative(), Unbounded()}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, h.NumParameters())

	// Priors alone are enough for posterior use.
	flat := Prior{LogPDF: func(float64) float64 { return 0 }, Default: 1}
	h, err = NewCompositeHypothesis(id, nil, []Prior{flat}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.NumParameters())
}

func TestLimitContains(t *testing.T) {
	l := Limit{Lower: 0, Upper: 2}
	assert.True(t, l.Contains(0))
	assert.True(t, l.Contains(2))
	assert.False(t, l.Contains(-0.1))
	assert.False(t, l.Contains(2.1))

	assert.True(t, Unbounded().Contains(math.Inf(1)))
	assert.True(t, NonNegative().Contains(1e300))
	assert.False(t, NonNegative().Contains(-1e-9))
}

func TestTemplateHypothesis(t *testing.T) {
	h, err := TemplateHypothesis([][]float64{
		{1, 0, 2},
		{0, 1, 1},
	}, nil, []string{"signal", "background"})
	require.NoError(t, err)
	assert.Equal(t, 2, h.NumParameters())
	assert.Equal(t, NonNegative(), h.ParameterLimits[0])

	truth := h.Translate(tensor.Vector([]float64{2, 3}))
	assert.Equal(t, []int{3}, truth.Shape)
	assert.Equal(t, []float64{2, 3, 7}, truth.Data)
}

func TestTemplateHypothesisBatch(t *testing.T) {
	h, err := TemplateHypothesis([][]float64{{1, 0}, {0, 1}}, nil, nil)
	require.NoError(t, err)

	params := tensor.MustNew([]float64{1, 2, 3, 4}, 2, 2)
	truth := h.Translate(params)
	assert.Equal(t, []int{2, 2}, truth.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4}, truth.Data)
}

func TestTemplateHypothesisValidation(t *testing.T) {
	var cfgErr *ConfigurationError

	_, err := TemplateHypothesis(nil, nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = TemplateHypothesis([][]float64{{1, 2}, {1}}, nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = TemplateHypothesis([][]float64{{1, 2}}, []Limit{NonNegative(), NonNegative()}, nil)
	require.ErrorAs(t, err, &cfgErr)
}
