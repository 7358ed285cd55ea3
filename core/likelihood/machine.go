package likelihood

import (
	"fmt"
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"

	"github.com/ast0815/likelihood-machine/core/optimize"
	"github.com/ast0815/likelihood-machine/core/tensor"
)

// LimitMethod selects how an out-of-limit truth vector is handled.
// Both policies are legitimate; the choice is made once at machine
// construction.
type LimitMethod int

const (
	// LimitRaise returns a DomainError for out-of-limit truth vectors.
	LimitRaise LimitMethod = iota

	// LimitProhibit returns a log likelihood of -Inf instead.
	LimitProhibit
)

// ParseLimitMethod maps the "raise"/"prohibit" keywords to a LimitMethod.
func ParseLimitMethod(s string) (LimitMethod, error) {
	switch s {
	case "raise", "":
		return LimitRaise, nil
	case "prohibit":
		return LimitProhibit, nil
	}
	return 0, &UnknownModeError{Mode: s}
}

// MachineConfig carries the optional construction parameters of a
// LikelihoodMachine.
type MachineConfig struct {
	// TruthLimits is the per-truth-bin upper validity bound of the response
	// matrix, guarding against extrapolating it beyond its simulated
	// statistics. Empty means unlimited.
	TruthLimits []float64

	// LimitMethod selects the out-of-limit policy. Default: LimitRaise.
	LimitMethod LimitMethod

	// EffThreshold is the column-sum efficiency above which a truth bin is
	// considered constrainable. Default: 0.
	EffThreshold float64
}

// Machine calculates likelihoods of truth vectors given one measured data
// vector and a (possibly stacked) response matrix.
//
// The efficiency mask and reduced response matrix are computed once at
// construction and never mutated afterwards; all evaluation methods only
// read this state, so a Machine is safe for concurrent use.
type Machine struct {
	data      tensor.Array
	response  tensor.Array
	reduced   tensor.Array
	mask      []bool
	nEff      int
	nReco     int
	nTruth    int
	systAxes  int
	toyShape  []int
	limits    []float64
	limitMode LimitMethod
	threshold float64
}

// NewMachine validates the input shapes and eagerly computes the efficiency
// mask and reduced response matrix.
func NewMachine(data, response tensor.Array, cfg MachineConfig) (*Machine, error) {
	if data.NDim() != 1 {
		return nil, &ShapeMismatchError{Op: "NewMachine", Detail: fmt.Sprintf("data vector must be one-dimensional, got shape %v", data.Shape)}
	}
	if response.NDim() < 2 {
		return nil, &ShapeMismatchError{Op: "NewMachine", Detail: fmt.Sprintf("response matrix needs at least 2 axes, got shape %v", response.Shape)}
	}
	nReco := response.Shape[response.NDim()-2]
	nTruth := response.Shape[response.NDim()-1]
	if data.LastDim() != nReco {
		return nil, &ShapeMismatchError{Op: "NewMachine", Detail: fmt.Sprintf("data length %d does not match response reco axis %d", data.LastDim(), nReco)}
	}

	limits := cfg.TruthLimits
	if len(limits) == 0 {
		limits = make([]float64, nTruth)
		for i := range limits {
			limits[i] = math.Inf(1)
		}
	} else if len(limits) != nTruth {
		return nil, &ShapeMismatchError{Op: "NewMachine", Detail: fmt.Sprintf("truth limits length %d does not match truth axis %d", len(limits), nTruth)}
	}

	mask := EfficiencyMask(response, cfg.EffThreshold)
	reduced, err := ReduceResponse(response, mask)
	if err != nil {
		return nil, err
	}
	nEff := 0
	for _, m := range mask {
		if m {
			nEff++
		}
	}

	return &Machine{
		data:      data.Clone(),
		response:  response.Clone(),
		reduced:   reduced,
		mask:      mask,
		nEff:      nEff,
		nReco:     nReco,
		nTruth:    nTruth,
		systAxes:  response.NDim() - 2,
		toyShape:  append([]int(nil), response.Shape[:response.NDim()-2]...),
		limits:    limits,
		limitMode: cfg.LimitMethod,
		threshold: cfg.EffThreshold,
	}, nil
}

// Data returns the measured data vector.
func (m *Machine) Data() tensor.Array { return m.data }

// EfficiencyMask returns the cached truth-bin mask.
func (m *Machine) EfficiencyMask() []bool { return m.mask }

// NumEfficientBins returns the number of constrainable truth bins.
func (m *Machine) NumEfficientBins() int { return m.nEff }

// NumToys returns the number of stacked systematic response instances.
func (m *Machine) NumToys() int {
	return tensor.Size(m.toyShape)
}

// ToyShape returns the shape of the stacked systematic axes.
func (m *Machine) ToyShape() []int { return m.toyShape }

// checkTruthLimits reports the first out-of-limit truth entry, if any. The
// check runs over all batch entries of a batched truth array.
func (m *Machine) checkTruthLimits(truth tensor.Array) *DomainError {
	n := truth.LastDim()
	for r := 0; r < truth.NumRows(); r++ {
		row := truth.Row(r)
		for j := 0; j < n; j++ {
			if row[j] > m.limits[j] {
				return &DomainError{Bin: j, Value: row[j], Limit: m.limits[j]}
			}
		}
	}
	return nil
}

// reduceTruth restricts a (batched) full-length truth array to the efficient
// truth bins.
func (m *Machine) reduceTruth(truth tensor.Array) (tensor.Array, error) {
	if truth.LastDim() != m.nTruth {
		return tensor.Array{}, &ShapeMismatchError{Op: "reduceTruth", Detail: fmt.Sprintf("truth length %d does not match truth axis %d", truth.LastDim(), m.nTruth)}
	}
	return ReduceTruth(truth, m.mask)
}

// reducedLogLikelihood evaluates the data likelihood of an already-reduced
// truth array and collapses the systematic axes. The systematic axes lead
// the result (the data vector contributes no batch axes), followed by the
// truth batch axes.
func (m *Machine) reducedLogLikelihood(reduced tensor.Array, syst Systematics) (tensor.Array, error) {
	ll, err := LogProbability(m.data, m.reduced, reduced)
	if err != nil {
		return tensor.Array{}, err
	}
	return Collapse(ll, 0, m.systAxes, syst)
}

// LogLikelihood calculates the log likelihood of a truth-expectation vector,
// or a batch of them. Out-of-limit truth values follow the configured limit
// policy: LimitRaise returns a DomainError, LimitProhibit returns a scalar
// -Inf likelihood.
func (m *Machine) LogLikelihood(truth tensor.Array, syst Systematics) (tensor.Array, error) {
	if derr := m.checkTruthLimits(truth); derr != nil {
		switch m.limitMode {
		case LimitRaise:
			return tensor.Array{}, derr
		case LimitProhibit:
			return tensor.Scalar(math.Inf(-1)), nil
		}
	}
	reduced, err := m.reduceTruth(truth)
	if err != nil {
		return tensor.Array{}, err
	}
	return m.reducedLogLikelihood(reduced, syst)
}

// reducedHypothesis wraps a hypothesis so its translate output lives in the
// efficient-truth subspace. The original hypothesis is not mutated.
func (m *Machine) reducedHypothesis(hyp *CompositeHypothesis) *CompositeHypothesis {
	wrapped := *hyp
	wrapped.Translate = func(params tensor.Array) tensor.Array {
		full := hyp.Translate(params)
		reduced, err := ReduceTruth(full, m.mask)
		if err != nil {
			panic(err) // translate contract violation
		}
		return reduced
	}
	return &wrapped
}

// objectiveFor builds the optimizer objective for a reduced-space hypothesis
// against an arbitrary data vector: the systematics-collapsed log probability
// as a function of the hypothesis parameters. Only profile and marginal
// systematics are meaningful inside a maximization.
func (m *Machine) objectiveFor(data tensor.Array, hyp *CompositeHypothesis, syst Systematics) (optimize.Objective, error) {
	switch syst.Mode() {
	case SystProfile:
		return func(params []float64) float64 {
			reduced := hyp.Translate(tensor.Vector(params))
			ll, err := LogProbability(data, m.reduced, reduced)
			if err != nil {
				return math.Inf(-1)
			}
			return vek.Max(ll.Data)
		}, nil
	case SystMarginal:
		logN := math.Log(float64(m.NumToys()))
		return func(params []float64) float64 {
			reduced := hyp.Translate(tensor.Vector(params))
			ll, err := LogProbability(data, m.reduced, reduced)
			if err != nil {
				return math.Inf(-1)
			}
			return floats.LogSumExp(ll.Data) - logN
		}, nil
	}
	return nil, &UnknownModeError{Mode: syst.String()}
}

// maxForData maximizes a reduced-space hypothesis against the given data
// vector. MaxLogLikelihood and the p-value resampling loops share this path.
func (m *Machine) maxForData(data tensor.Array, hyp *CompositeHypothesis, syst Systematics, cfg optimize.Config) (MaxResult, error) {
	obj, err := m.objectiveFor(data, hyp, syst)
	if err != nil {
		return MaxResult{}, err
	}
	bounds := make([]optimize.Bound, len(hyp.ParameterLimits))
	for i, l := range hyp.ParameterLimits {
		bounds[i] = optimize.Bound{Lower: l.Lower, Upper: l.Upper}
	}
	res, err := optimize.Maximize(obj, bounds, cfg)
	if err != nil {
		return MaxResult{}, err
	}
	return MaxResult{
		LogLikelihood: res.LogProbability,
		Parameters:    res.Parameters,
		Evaluations:   res.Evaluations,
	}, nil
}

// MaxResult is the outcome of a likelihood maximization.
type MaxResult struct {
	// LogLikelihood is the maximum found.
	LogLikelihood float64

	// Parameters is the argmax parameter vector.
	Parameters []float64

	// SystIndex is the multi-index of the systematic instance matching best
	// at the optimum. It is populated only for profile systematics.
	SystIndex []int

	// Evaluations counts likelihood evaluations spent in the search.
	Evaluations int
}

// MaxLogLikelihood finds the parameters of the hypothesis maximizing the
// systematics-collapsed likelihood of the data, subject to the hypothesis'
// parameter limits.
func (m *Machine) MaxLogLikelihood(hyp *CompositeHypothesis, syst Systematics, cfg optimize.Config) (MaxResult, error) {
	if len(hyp.ParameterLimits) == 0 {
		return MaxResult{}, &ConfigurationError{Reason: "hypothesis has no parameter limits; cannot maximize"}
	}

	wrapped := m.reducedHypothesis(hyp)
	out, err := m.maxForData(m.data, wrapped, syst, cfg)
	if err != nil {
		return MaxResult{}, err
	}

	// For profiled systematics, report which systematic instance matched
	// best at the optimum by re-evaluating the raw per-instance
	// log probabilities.
	if syst.Mode() == SystProfile && m.systAxes > 0 {
		reduced := wrapped.Translate(tensor.Vector(out.Parameters))
		ll, err := LogProbability(m.data, m.reduced, reduced)
		if err == nil && ll.Len() > 0 {
			out.SystIndex = tensor.Unravel(vek.ArgMax(ll.Data), m.toyShape)
		}
	}
	return out, nil
}

// AbsoluteMaxLogLikelihood calculates the best log likelihood achievable with
// the given data: the "saturated model" reference for goodness-of-fit tests.
// It maximizes over one unconstrained [0, +Inf) yield per efficient truth
// bin. The returned parameters are expanded back to the full truth space,
// with zeros in the unconstrainable bins.
func (m *Machine) AbsoluteMaxLogLikelihood(syst Systematics, cfg optimize.Config) (MaxResult, error) {
	nTruth := m.nTruth
	mask := m.mask

	// Identity-like hypothesis over the efficient truth bins.
	translate := func(params tensor.Array) tensor.Array {
		rows := params.NumRows()
		out := make([]float64, rows*nTruth)
		for r := 0; r < rows; r++ {
			p := params.Row(r)
			full := out[r*nTruth : (r+1)*nTruth]
			k := 0
			for j, keep := range mask {
				if keep {
					full[j] = p[k]
					k++
				}
			}
		}
		return tensor.Array{Data: out, Shape: tensor.Concat(params.Batch(), []int{nTruth})}
	}

	limits := make([]Limit, m.nEff)
	for i := range limits {
		limits[i] = NonNegative()
	}
	hyp, err := NewCompositeHypothesis(translate, limits, nil, nil)
	if err != nil {
		return MaxResult{}, err
	}

	res, err := m.MaxLogLikelihood(hyp, syst, cfg)
	if err != nil {
		return MaxResult{}, err
	}

	// Expand the efficient-bin yields into a full truth vector.
	res.Parameters = translate(tensor.Vector(res.Parameters)).Data
	return res, nil
}
