package likelihood

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

// JeffreysPrior is a universal non-informative prior for Bayesian analyses,
// proportional to the square root of the determinant of the Fisher
// information matrix of the expected reco-space measurement. It is invariant
// under reparametrization of the hypothesis.
//
// The prior is a pure log-density callable: it holds no mutable state beyond
// its fixed configuration and can be shared between sampler evaluations.
//
// By construction the prior returns -Inf when the expected reco values do
// not depend on one of the parameters; such a parameter cannot be
// constrained with the given detector response and should be removed.
type JeffreysPrior struct {
	response        tensor.Array // flattened to (nToys, nReco, nTruth)
	translate       TranslateFunc
	limits          []Limit
	defaults        []float64
	dx              []float64
	totalTruthLimit float64

	nToys int
	nReco int
	nPar  int
}

// JeffreysPriorConfig carries the optional construction parameters.
type JeffreysPriorConfig struct {
	// Dx is the per-parameter step size for the numerical differentiation.
	// Default: 1e-3 for every parameter.
	Dx []float64

	// TotalTruthLimit caps the summed truth expectation considered by the
	// prior, making it proper in a way defined in truth space rather than
	// parameter space. Default: unlimited.
	TotalTruthLimit float64
}

// NewJeffreysPrior validates and constructs the prior. Stacked toy axes of
// the response matrix are flattened; LogDensity selects instances by flat
// toy index.
func NewJeffreysPrior(response tensor.Array, translate TranslateFunc, limits []Limit, defaults []float64, cfg JeffreysPriorConfig) (*JeffreysPrior, error) {
	if translate == nil {
		return nil, &ConfigurationError{Reason: "translate function must not be nil"}
	}
	if len(limits) == 0 {
		return nil, &ConfigurationError{Reason: "parameter limits are required"}
	}
	if len(defaults) != len(limits) {
		return nil, &ConfigurationError{Reason: "one default value required per parameter"}
	}
	if response.NDim() < 2 {
		return nil, &ShapeMismatchError{Op: "NewJeffreysPrior", Detail: fmt.Sprintf("response matrix needs at least 2 axes, got shape %v", response.Shape)}
	}

	nReco := response.Shape[response.NDim()-2]
	nTruth := response.Shape[response.NDim()-1]
	nToys := response.Len() / (nReco * nTruth)
	flat, err := response.Reshape(nToys, nReco, nTruth)
	if err != nil {
		return nil, err
	}

	nPar := len(limits)
	dx := cfg.Dx
	if dx == nil {
		dx = make([]float64, nPar)
		for i := range dx {
			dx[i] = 1e-3
		}
	} else if len(dx) != nPar {
		return nil, &ConfigurationError{Reason: "one differentiation step required per parameter"}
	}

	totalLimit := cfg.TotalTruthLimit
	if totalLimit == 0 {
		totalLimit = math.Inf(1)
	}

	return &JeffreysPrior{
		response:        flat,
		translate:       translate,
		limits:          append([]Limit(nil), limits...),
		defaults:        append([]float64(nil), defaults...),
		dx:              dx,
		totalTruthLimit: totalLimit,
		nToys:           nToys,
		nReco:           nReco,
		nPar:            nPar,
	}, nil
}

// Defaults returns the default parameter values handed to samplers.
func (j *JeffreysPrior) Defaults() []float64 { return j.defaults }

// NumToys returns the number of flattened systematic response instances.
func (j *JeffreysPrior) NumToys() int { return j.nToys }

// recoExpectation translates parameters into truth space and folds the
// result through the selected response instance.
func (j *JeffreysPrior) recoExpectation(params []float64, toyIndex int) ([]float64, error) {
	size := j.nReco * j.response.Shape[2]
	resp, err := tensor.New(j.response.Data[toyIndex*size:(toyIndex+1)*size], j.nReco, j.response.Shape[2])
	if err != nil {
		return nil, err
	}
	truth := j.translate(tensor.Vector(params))
	lam, err := tensor.Contract(resp, truth)
	if err != nil {
		return nil, err
	}
	return lam.Data, nil
}

// FisherMatrix calculates the Fisher information matrix at the given
// parameter point for one systematic instance:
//
//	F_ij = sum_k (dLambda_k/dTheta_i)(dLambda_k/dTheta_j) / Lambda_k
//
// with central finite differences of the reco expectation Lambda. Reco bins
// with zero expectation are skipped, the NaN-safe equivalent of ignoring
// them.
func (j *JeffreysPrior) FisherMatrix(params []float64, toyIndex int) (*mat.SymDense, error) {
	if toyIndex < 0 || toyIndex >= j.nToys {
		return nil, &ShapeMismatchError{Op: "FisherMatrix", Detail: fmt.Sprintf("toy index %d out of range [0,%d)", toyIndex, j.nToys)}
	}

	lam, err := j.recoExpectation(params, toyIndex)
	if err != nil {
		return nil, err
	}

	// Central differences of the reco expectation per parameter.
	diff := make([][]float64, j.nPar)
	theta := make([]float64, j.nPar)
	for i := 0; i < j.nPar; i++ {
		copy(theta, params)
		theta[i] = params[i] + j.dx[i]
		plus, err := j.recoExpectation(theta, toyIndex)
		if err != nil {
			return nil, err
		}
		theta[i] = params[i] - j.dx[i]
		minus, err := j.recoExpectation(theta, toyIndex)
		if err != nil {
			return nil, err
		}
		d := make([]float64, j.nReco)
		for k := range d {
			d[k] = (plus[k] - minus[k]) / (2 * j.dx[i])
		}
		diff[i] = d
	}

	fish := mat.NewSymDense(j.nPar, nil)
	for i := 0; i < j.nPar; i++ {
		for l := i; l < j.nPar; l++ {
			var sum float64
			for k := 0; k < j.nReco; k++ {
				if lam[k] == 0 {
					continue
				}
				sum += diff[i][k] * diff[l][k] / lam[k]
			}
			fish.SetSym(i, l, sum)
		}
	}
	return fish, nil
}

// LogDensity calculates the prior log probability of the given parameter
// set: -Inf outside the parameter limits or beyond the total truth limit,
// 0.5*ln|det F| otherwise. A singular Fisher matrix yields a non-finite
// value rather than an error.
func (j *JeffreysPrior) LogDensity(value []float64, toyIndex int) float64 {
	for i, l := range j.limits {
		if !l.Contains(value[i]) {
			return math.Inf(-1)
		}
	}

	truth := j.translate(tensor.Vector(value))
	var total float64
	for _, v := range truth.Data {
		total += v
	}
	if total > j.totalTruthLimit {
		return math.Inf(-1)
	}

	fish, err := j.FisherMatrix(value, toyIndex)
	if err != nil {
		return math.Inf(-1)
	}

	var lu mat.LU
	lu.Factorize(fish)
	logDet, _ := lu.LogDet()
	return 0.5 * logDet
}
