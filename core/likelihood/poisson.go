// Package likelihood implements a Poisson likelihood engine for
// detector-unfolding analyses: given an observed histogram of reconstructed
// event counts and a response matrix folding truth-level yields into the
// reconstructed space, it evaluates and maximizes likelihoods over
// parametrized truth hypotheses, estimates frequentist p-values by Monte
// Carlo resampling, and supplies Jeffreys priors for Bayesian samplers.
package likelihood

import (
	"fmt"
	"math"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

// poissonLogPMF returns ln P(k | lambda) for the Poisson distribution,
// k*ln(lambda) - lambda - ln(k!).
//
// The zero-expectation corner cases matter to the optimizers built on top:
// a zero expectation with a zero count has probability one, while a zero
// expectation with a non-zero count is impossible. Neither case may produce
// NaN.
func poissonLogPMF(k, lambda float64) float64 {
	if lambda == 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	if lambda < 0 || k < 0 {
		return math.Inf(-1)
	}
	lg, _ := math.Lgamma(k + 1)
	return k*math.Log(lambda) - lambda - lg
}

// LogProbability computes the Poisson log probability of observing data given
// a response matrix and a truth vector, with outer broadcasting over the
// batch axes of all three inputs.
//
// Shapes:
//
//	data     (A..., nReco)
//	response (B..., nReco, nTruth)
//	truth    (C..., nTruth)
//	result   (A..., B..., C...)
//
// Every data instance is evaluated against every response instance against
// every truth instance. The log probability of one combination is the sum of
// per-bin Poisson log PMFs over the reco axis; any non-finite sum is mapped
// to -Inf.
func LogProbability(data, response, truth tensor.Array) (tensor.Array, error) {
	if response.NDim() < 2 {
		return tensor.Array{}, &ShapeMismatchError{Op: "LogProbability", Detail: "response matrix needs at least 2 axes"}
	}
	nReco := response.Shape[response.NDim()-2]
	nTruth := response.Shape[response.NDim()-1]
	if data.LastDim() != nReco {
		return tensor.Array{}, &ShapeMismatchError{
			Op:     "LogProbability",
			Detail: fmt.Sprintf("data length %d does not match response reco axis %d", data.LastDim(), nReco),
		}
	}
	if truth.LastDim() != nTruth {
		return tensor.Array{}, &ShapeMismatchError{
			Op:     "LogProbability",
			Detail: fmt.Sprintf("truth length %d does not match response truth axis %d", truth.LastDim(), nTruth),
		}
	}

	// Reco expectations for every (response, truth) combination:
	// shape B... + C... + [nReco].
	reco, err := tensor.Contract(response, truth)
	if err != nil {
		return tensor.Array{}, err
	}

	// Outer-broadcast the data batch against the combined response/truth
	// batch and sum Poisson log PMFs over the reco axis.
	out := tensor.OuterMap(data, reco, func(d, lam []float64) float64 {
		var ll float64
		for k := range d {
			ll += poissonLogPMF(d[k], lam[k])
		}
		if math.IsNaN(ll) || math.IsInf(ll, 1) {
			return math.Inf(-1)
		}
		return ll
	})
	return out, nil
}
