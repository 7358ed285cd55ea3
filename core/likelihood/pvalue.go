package likelihood

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ast0815/likelihood-machine/core/optimize"
	"github.com/ast0815/likelihood-machine/core/tensor"
)

// PValueConfig controls the Monte Carlo p-value estimators.
//
// The estimators draw N fake data sets from the tested truth expectation and
// count the fraction n/N that fit as badly as, or worse than, the real data.
// The estimate follows binomial statistics:
//
//	var(p) = p(1-p)/N <= 1/(4N)
//
// so the expected uncertainty is controlled directly by N.
type PValueConfig struct {
	// N is the number of Monte Carlo trials. Default: 2500 for plain
	// likelihood p-values, 250 for the (much costlier) maximum-likelihood
	// variants.
	N int

	// GeneratorIndex optionally selects the systematic response instance
	// used to generate fake data, as a multi-index into the stacked toy
	// axes. When nil and multiple response matrices are stacked, N data
	// sets are drawn from each instance.
	GeneratorIndex []int

	// Seed makes the resampling reproducible. 0 derives a seed from the
	// clock.
	Seed uint64

	// Optimizer configures the per-trial likelihood maximization of the
	// max-likelihood p-value variants.
	Optimizer optimize.Config
}

func (c PValueConfig) rng() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0xd1342543de82ef95))
}

// GenerateRandomDataSample draws n Poisson-random data sets from the reco
// expectation response · truth. For a stacked response matrix one set of n
// samples is drawn per instance; the result has shape (n · numInstances,
// nReco) with the trial axis leading.
func GenerateRandomDataSample(response, truth tensor.Array, n int, rng *rand.Rand) (tensor.Array, error) {
	mu, err := tensor.Contract(response, truth)
	if err != nil {
		return tensor.Array{}, err
	}
	nReco := mu.LastDim()
	rows := mu.NumRows()

	out := make([]float64, n*rows*nReco)
	o := 0
	for s := 0; s < n; s++ {
		for r := 0; r < rows; r++ {
			lam := mu.Row(r)
			for k := 0; k < nReco; k++ {
				if lam[k] <= 0 {
					out[o] = 0
				} else {
					out[o] = distuv.Poisson{Lambda: lam[k], Src: rng}.Rand()
				}
				o++
			}
		}
	}
	return tensor.New(out, n*rows, nReco)
}

// generatorResponse picks the response matrix used for fake-data generation:
// a single systematic instance when index is given, all stacked instances
// otherwise.
func (m *Machine) generatorResponse(index []int) (tensor.Array, error) {
	if index == nil || m.systAxes == 0 {
		return m.reduced, nil
	}
	j, err := tensor.Ravel(index, m.toyShape)
	if err != nil {
		return tensor.Array{}, &ShapeMismatchError{Op: "generatorResponse", Detail: fmt.Sprintf("generator index %v invalid for toy shape %v", index, m.toyShape)}
	}
	size := m.nReco * m.nEff
	return tensor.New(m.reduced.Data[j*size:(j+1)*size], m.nReco, m.nEff)
}

// scalarLL collapses a likelihood array down to one number, failing when the
// chosen systematics mode leaves more than one entry.
func scalarLL(ll tensor.Array) (float64, error) {
	if ll.Len() != 1 {
		return 0, &ConfigurationError{Reason: "p-value estimation needs a scalar likelihood; choose a collapsing systematics mode"}
	}
	return ll.Data[0], nil
}

// LikelihoodPValue estimates the probability of measuring data as unlikely
// as, or more unlikely than, the actual data under the given truth vector.
func (m *Machine) LikelihoodPValue(truth tensor.Array, syst Systematics, cfg PValueConfig) (float64, error) {
	if cfg.N <= 0 {
		cfg.N = 2500
	}

	reduced, err := m.reduceTruth(truth)
	if err != nil {
		return 0, err
	}
	ll, err := m.reducedLogLikelihood(reduced, syst)
	if err != nil {
		return 0, err
	}
	p0, err := scalarLL(ll)
	if err != nil {
		return 0, err
	}

	genResp, err := m.generatorResponse(cfg.GeneratorIndex)
	if err != nil {
		return 0, err
	}
	fake, err := GenerateRandomDataSample(genResp, reduced, cfg.N, cfg.rng())
	if err != nil {
		return 0, err
	}

	// Likelihood of each fake data set under the same truth vector, with
	// the same systematics treatment as the real data.
	prob, err := LogProbability(fake, m.reduced, reduced)
	if err != nil {
		return 0, err
	}
	prob, err = Collapse(prob, 1, m.systAxes, syst)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, v := range prob.Data {
		if v <= p0 {
			n++
		}
	}
	return float64(n) / float64(prob.Len()), nil
}

// MaxLikelihoodPValue estimates the probability that data generated from the
// hypothesis' best fit yields a worse maximum likelihood than the actual
// data. When parameters is nil the assumed-true parameters are obtained by a
// maximum-likelihood fit first.
func (m *Machine) MaxLikelihoodPValue(hyp *CompositeHypothesis, parameters []float64, syst Systematics, cfg PValueConfig) (float64, error) {
	if cfg.N <= 0 {
		cfg.N = 250
	}

	if parameters == nil {
		fit, err := m.MaxLogLikelihood(hyp, syst, cfg.Optimizer)
		if err != nil {
			return 0, err
		}
		parameters = fit.Parameters
	}

	truth := hyp.Translate(tensor.Vector(parameters))
	reduced, err := m.reduceTruth(truth)
	if err != nil {
		return 0, err
	}
	ll, err := m.reducedLogLikelihood(reduced, syst)
	if err != nil {
		return 0, err
	}
	p0, err := scalarLL(ll)
	if err != nil {
		return 0, err
	}

	genResp, err := m.generatorResponse(cfg.GeneratorIndex)
	if err != nil {
		return 0, err
	}
	fake, err := GenerateRandomDataSample(genResp, reduced, cfg.N, cfg.rng())
	if err != nil {
		return 0, err
	}

	wrapped := m.reducedHypothesis(hyp)
	n := 0
	for i := 0; i < fake.NumRows(); i++ {
		res, err := m.maxForData(tensor.Vector(fake.Row(i)), wrapped, syst, m.trialConfig(cfg.Optimizer, i))
		if err != nil {
			return 0, err
		}
		if res.LogLikelihood <= p0 {
			n++
		}
	}
	return float64(n) / float64(fake.NumRows()), nil
}

// MaxLikelihoodRatioPValue estimates the p-value of the log-likelihood-ratio
// test statistic between a tested hypothesis h0 and an alternative h1. The
// null distribution is generated by resampling under h0's (given or fitted)
// best-fit truth. par0 and par1 may be nil to request fits.
func (m *Machine) MaxLikelihoodRatioPValue(h0, h1 *CompositeHypothesis, par0, par1 []float64, syst Systematics, cfg PValueConfig) (float64, error) {
	if cfg.N <= 0 {
		cfg.N = 250
	}

	if par0 == nil {
		fit, err := m.MaxLogLikelihood(h0, syst, cfg.Optimizer)
		if err != nil {
			return 0, err
		}
		par0 = fit.Parameters
	}
	if par1 == nil {
		fit, err := m.MaxLogLikelihood(h1, syst, cfg.Optimizer)
		if err != nil {
			return 0, err
		}
		par1 = fit.Parameters
	}

	truth0, err := m.reduceTruth(h0.Translate(tensor.Vector(par0)))
	if err != nil {
		return 0, err
	}
	truth1, err := m.reduceTruth(h1.Translate(tensor.Vector(par1)))
	if err != nil {
		return 0, err
	}

	ll0, err := m.reducedLogLikelihood(truth0, syst)
	if err != nil {
		return 0, err
	}
	p0, err := scalarLL(ll0)
	if err != nil {
		return 0, err
	}
	ll1, err := m.reducedLogLikelihood(truth1, syst)
	if err != nil {
		return 0, err
	}
	p1, err := scalarLL(ll1)
	if err != nil {
		return 0, err
	}
	r0 := p0 - p1 // log of the likelihood ratio

	genResp, err := m.generatorResponse(cfg.GeneratorIndex)
	if err != nil {
		return 0, err
	}
	fake, err := GenerateRandomDataSample(genResp, truth0, cfg.N, cfg.rng())
	if err != nil {
		return 0, err
	}

	w0 := m.reducedHypothesis(h0)
	w1 := m.reducedHypothesis(h1)
	n := 0
	for i := 0; i < fake.NumRows(); i++ {
		data := tensor.Vector(fake.Row(i))
		res0, err := m.maxForData(data, w0, syst, m.trialConfig(cfg.Optimizer, i))
		if err != nil {
			return 0, err
		}
		res1, err := m.maxForData(data, w1, syst, m.trialConfig(cfg.Optimizer, i))
		if err != nil {
			return 0, err
		}
		if res0.LogLikelihood-res1.LogLikelihood <= r0 {
			n++
		}
	}
	return float64(n) / float64(fake.NumRows()), nil
}

// trialConfig derives a per-trial optimizer config so that seeded resampling
// runs stay reproducible without reusing one seed across all trials.
func (m *Machine) trialConfig(cfg optimize.Config, trial int) optimize.Config {
	if cfg.Seed != 0 {
		cfg.Seed += uint64(trial) + 1
	}
	return cfg
}
