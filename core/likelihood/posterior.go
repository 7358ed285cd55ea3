package likelihood

import (
	"errors"
	"math"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

// LogDensity is a pure log-density callable handed to an external Bayesian
// sampler. toyIndex is the discrete nuisance parameter over the stacked
// systematic response instances, flattened; it must lie in [0, NumToys()).
// The sampler's proposal mechanism and chain storage are entirely external
// concerns.
type LogDensity func(params []float64, toyIndex int) float64

// LogPosterior builds the log-posterior density of a hypothesis: the sum of
// the per-parameter prior log densities plus the data log likelihood at the
// translated truth vector, evaluated for one systematic instance at a time.
//
// The hypothesis must define parameter priors; otherwise a
// ConfigurationError is returned. Out-of-limit truth vectors contribute -Inf
// density rather than an error, regardless of the machine's limit policy, so
// samplers can roam freely.
func (m *Machine) LogPosterior(hyp *CompositeHypothesis) (LogDensity, error) {
	if len(hyp.ParameterPriors) == 0 {
		return nil, &ConfigurationError{Reason: "hypothesis has no parameter priors; cannot build a posterior"}
	}
	priors := hyp.ParameterPriors
	nToys := m.NumToys()
	toyShape := m.toyShape

	return func(params []float64, toyIndex int) float64 {
		if toyIndex < 0 || toyIndex >= nToys {
			return math.Inf(-1)
		}

		lp := 0.0
		for i, prior := range priors {
			lp += prior.LogPDF(params[i])
			if math.IsInf(lp, -1) {
				return math.Inf(-1)
			}
		}

		truth := hyp.Translate(tensor.Vector(params))
		ll, err := m.LogLikelihood(truth, Fixed(tensor.Unravel(toyIndex, toyShape)...))
		if err != nil {
			var derr *DomainError
			if errors.As(err, &derr) {
				return math.Inf(-1)
			}
			return math.NaN()
		}
		return lp + ll.ScalarValue()
	}, nil
}

// PosteriorSample is a set of parameter vectors drawn from a hypothesis'
// posterior distribution together with the matching systematic toy indices,
// one multi-index row per parameter vector.
type PosteriorSample struct {
	Parameters tensor.Array // shape (n, nParams)
	ToyIndices tensor.Array // shape (n, nSystAxes)
}

// PosteriorLikelihoodRatio calculates a sample of the posterior distribution
// of the log likelihood ratio between two hypotheses, from posterior samples
// of each, together with the resulting model preference: the fraction of
// ratio entries preferring h1 over h0.
//
// The samples are assumed independent, so the ratio sample is built from all
// cross pairs. The statistic is antisymmetric under exchanging the
// hypotheses: plr(h0, h1) = -plr(h1, h0).
func (m *Machine) PosteriorLikelihoodRatio(h0 *CompositeHypothesis, s0 PosteriorSample, h1 *CompositeHypothesis, s1 PosteriorSample) (ratio []float64, preference float64, err error) {
	l0, err := m.LogLikelihood(h0.Translate(s0.Parameters), IndexArray(s0.ToyIndices))
	if err != nil {
		return nil, 0, err
	}
	l1, err := m.LogLikelihood(h1.Translate(s1.Parameters), IndexArray(s1.ToyIndices))
	if err != nil {
		return nil, 0, err
	}

	ratio = make([]float64, 0, l0.Len()*l1.Len())
	nPref := 0
	for _, a := range l1.Data {
		for _, b := range l0.Data {
			r := a - b
			ratio = append(ratio, r)
			if r > 0 {
				nPref++
			}
		}
	}
	return ratio, float64(nPref) / float64(len(ratio)), nil
}
