package cmd

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ast0815/likelihood-machine/core/likelihood"
	"github.com/ast0815/likelihood-machine/core/optimize"
	"github.com/ast0815/likelihood-machine/core/tensor"
)

const testAnalysis = `
data: [3, 5]
response:
  shape: [2, 2]
  values: [1, 0, 0, 1]
truth_limits: [20, 20]
limit_method: prohibit
systematics: profile
truth: [3, 5]
templates:
  - name: signal
    values: [1, 0]
  - name: background
    values: [0, 1]
    lower: 0.5
    upper: 10
optimizer:
  method: perturb-refine
  iterations: 50
  seed: 99
pvalue:
  n: 500
  seed: 7
`

func writeAnalysis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAnalysis(t *testing.T) {
	a, err := LoadAnalysis(writeAnalysis(t, testAnalysis))
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 5}, a.Data)
	assert.Equal(t, []int{2, 2}, a.Response.Shape)
	assert.Equal(t, "prohibit", a.LimitMethod)
	assert.Equal(t, 500, a.PValue.N)

	m, err := a.Machine()
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumEfficientBins())

	syst, err := a.SystematicsMode()
	require.NoError(t, err)
	assert.Equal(t, likelihood.SystProfile, syst.Mode())

	hyp, err := a.Hypothesis()
	require.NoError(t, err)
	assert.Equal(t, 2, hyp.NumParameters())
	assert.Equal(t, []string{"signal", "background"}, hyp.ParameterNames)
	assert.Equal(t, likelihood.Limit{Lower: 0, Upper: math.Inf(1)}, hyp.ParameterLimits[0])
	assert.Equal(t, likelihood.Limit{Lower: 0.5, Upper: 10}, hyp.ParameterLimits[1])

	truth := hyp.Translate(tensor.Vector([]float64{2, 3}))
	assert.Equal(t, []float64{2, 3}, truth.Data)

	cfg, err := a.OptimizerConfig()
	require.NoError(t, err)
	assert.Equal(t, optimize.MethodPerturbRefine, cfg.Method)
	assert.Equal(t, 50, cfg.Iterations)
	assert.Equal(t, uint64(99), cfg.Seed)
}

func TestLoadAnalysisValidation(t *testing.T) {
	_, err := LoadAnalysis(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadAnalysis(writeAnalysis(t, "data: [1]\n"))
	require.Error(t, err)

	_, err = LoadAnalysis(writeAnalysis(t, "data: [1]\nresponse: {shape: [1, 1], values: [not a number]}\n"))
	require.Error(t, err)
}

func TestAnalysisUnknownKeywords(t *testing.T) {
	a, err := LoadAnalysis(writeAnalysis(t, `
data: [1]
response:
  shape: [1, 1]
  values: [1]
limit_method: explode
systematics: sideways
optimizer:
  method: annealing
`))
	require.NoError(t, err)

	_, err = a.Machine()
	var modeErr *likelihood.UnknownModeError
	require.ErrorAs(t, err, &modeErr)

	_, err = a.SystematicsMode()
	require.ErrorAs(t, err, &modeErr)

	_, err = a.OptimizerConfig()
	var methodErr *optimize.UnknownMethodError
	require.ErrorAs(t, err, &methodErr)
}

func TestAnalysisHypothesisRequiresTemplates(t *testing.T) {
	a, err := LoadAnalysis(writeAnalysis(t, "data: [1]\nresponse: {shape: [1, 1], values: [1]}\n"))
	require.NoError(t, err)
	_, err = a.Hypothesis()
	require.Error(t, err)
}
