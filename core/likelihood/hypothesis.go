package likelihood

import (
	"math"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

// TranslateFunc maps a parameter vector into a truth-expectation vector. It
// must support the same batching contract as the rest of the engine: an input
// of shape batch + [nParams] maps to an output of shape batch + [nTruth].
type TranslateFunc func(params tensor.Array) tensor.Array

// Limit is a closed parameter interval. Either side may be infinite.
type Limit struct {
	Lower float64
	Upper float64
}

// Unbounded returns a limit open on both sides.
func Unbounded() Limit {
	return Limit{Lower: math.Inf(-1), Upper: math.Inf(1)}
}

// NonNegative returns the [0, +Inf) limit used for yield-like parameters.
func NonNegative() Limit {
	return Limit{Lower: 0, Upper: math.Inf(1)}
}

// Contains reports whether v lies within the limit.
func (l Limit) Contains(v float64) bool {
	return v >= l.Lower && v <= l.Upper
}

// Prior is a per-parameter log prior density with a default starting value,
// used when building log posteriors for external Bayesian samplers.
type Prior struct {
	// LogPDF returns the logarithmic probability density of a parameter
	// value. It should return -Inf for excluded values.
	LogPDF func(value float64) float64

	// Default is the starting value handed to samplers.
	Default float64
}

// CompositeHypothesis translates a set of parameters into a truth vector.
// It is the unit of "theory" under test: immutable once constructed.
//
// ParameterLimits are required for likelihood maximization;
// ParameterPriors are required for Bayesian posterior construction.
// At least one of the two must be supplied.
type CompositeHypothesis struct {
	Translate       TranslateFunc
	ParameterLimits []Limit
	ParameterPriors []Prior
	ParameterNames  []string
}

// NewCompositeHypothesis validates and constructs a hypothesis. It fails with
// a ConfigurationError when translate is nil or when neither limits nor
// priors are supplied. Limits and priors are not checked against each other
// for consistency.
func NewCompositeHypothesis(translate TranslateFunc, limits []Limit, priors []Prior, names []string) (*CompositeHypothesis, error) {
	if translate == nil {
		return nil, &ConfigurationError{Reason: "translate function must not be nil"}
	}
	if len(limits) == 0 && len(priors) == 0 {
		return nil, &ConfigurationError{Reason: "must provide at least one of parameter limits or parameter priors"}
	}
	return &CompositeHypothesis{
		Translate:       translate,
		ParameterLimits: limits,
		ParameterPriors: priors,
		ParameterNames:  names,
	}, nil
}

// NumParameters returns the parameter count implied by limits or priors.
func (h *CompositeHypothesis) NumParameters() int {
	if len(h.ParameterLimits) > 0 {
		return len(h.ParameterLimits)
	}
	return len(h.ParameterPriors)
}

// TemplateHypothesis builds the common linear-mix hypothesis: the truth
// vector is the weighted sum of fixed truth templates, one weight per
// template. Every weight is bounded to [0, +Inf) unless explicit limits are
// given.
func TemplateHypothesis(templates [][]float64, limits []Limit, names []string) (*CompositeHypothesis, error) {
	if len(templates) == 0 {
		return nil, &ConfigurationError{Reason: "template hypothesis needs at least one template"}
	}
	nTruth := len(templates[0])
	for _, tpl := range templates {
		if len(tpl) != nTruth {
			return nil, &ConfigurationError{Reason: "all truth templates must have the same length"}
		}
	}
	if limits == nil {
		limits = make([]Limit, len(templates))
		for i := range limits {
			limits[i] = NonNegative()
		}
	}
	if len(limits) != len(templates) {
		return nil, &ConfigurationError{Reason: "one parameter limit required per template"}
	}

	translate := func(params tensor.Array) tensor.Array {
		rows := params.NumRows()
		out := make([]float64, rows*nTruth)
		for r := 0; r < rows; r++ {
			p := params.Row(r)
			truth := out[r*nTruth : (r+1)*nTruth]
			for i, tpl := range templates {
				for j, v := range tpl {
					truth[j] += p[i] * v
				}
			}
		}
		shape := tensor.Concat(params.Batch(), []int{nTruth})
		return tensor.Array{Data: out, Shape: shape}
	}
	return NewCompositeHypothesis(translate, limits, nil, names)
}
