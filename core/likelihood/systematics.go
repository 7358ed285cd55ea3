package likelihood

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

// SystMode enumerates the ways the systematic-instance axes of a likelihood
// array can be collapsed when the response matrix is a stack of detector
// variations.
type SystMode int

const (
	// SystNone leaves the systematic axes untouched.
	SystNone SystMode = iota

	// SystProfile takes the elementwise maximum over the systematic axes,
	// selecting the best-matching detector variation per entry.
	SystProfile

	// SystMarginal averages the probabilities (not the log probabilities)
	// over the systematic axes: ln(mean(exp(ll))). This corresponds to a
	// uniform prior over the systematic-toy identity and is deliberate
	// physical modelling; it must not be "corrected" to a mean of logs.
	SystMarginal

	// SystFixed selects one specific systematic instance by multi-index.
	SystFixed

	// SystIndexArray selects a possibly different systematic instance for
	// every non-systematic batch entry.
	SystIndexArray
)

// Systematics is a validated tagged union selecting a collapse mode.
// Construct values with the Profile, Marginal, NoCollapse, Fixed or
// IndexArray constructors; the zero value is NoCollapse.
type Systematics struct {
	mode    SystMode
	index   []int
	indices tensor.Array // float64-encoded indices, shape batch + [nSystAxes]
}

// Profile returns the profiling (elementwise maximum) collapse mode.
func Profile() Systematics { return Systematics{mode: SystProfile} }

// Marginal returns the probability-averaging collapse mode.
func Marginal() Systematics { return Systematics{mode: SystMarginal} }

// NoCollapse returns the identity mode; callers receive the full multi-axis
// likelihood array.
func NoCollapse() Systematics { return Systematics{mode: SystNone} }

// Fixed returns a mode selecting the single systematic instance at the given
// multi-index into the stacked toy axes.
func Fixed(index ...int) Systematics {
	ix := make([]int, len(index))
	copy(ix, index)
	return Systematics{mode: SystFixed, index: ix}
}

// IndexArray returns a mode selecting a specific systematic instance per
// non-systematic batch entry. indices must have shape batch + [nSystAxes],
// where batch matches the non-systematic batch shape of the likelihood array.
func IndexArray(indices tensor.Array) Systematics {
	return Systematics{mode: SystIndexArray, indices: indices}
}

// Mode returns the collapse tag.
func (s Systematics) Mode() SystMode { return s.mode }

func (s Systematics) String() string {
	switch s.mode {
	case SystNone:
		return "none"
	case SystProfile:
		return "profile"
	case SystMarginal:
		return "marginal"
	case SystFixed:
		return fmt.Sprintf("fixed%v", s.index)
	case SystIndexArray:
		return "index-array"
	}
	return fmt.Sprintf("invalid(%d)", int(s.mode))
}

// ParseSystematics maps the conventional mode keywords to a Systematics
// value. Both the "profile"/"maximum" and "marginal"/"average" aliases are
// accepted. Unknown keywords are an UnknownModeError.
func ParseSystematics(s string) (Systematics, error) {
	switch s {
	case "profile", "maximum":
		return Profile(), nil
	case "marginal", "average":
		return Marginal(), nil
	case "none", "":
		return NoCollapse(), nil
	}
	return Systematics{}, &UnknownModeError{Mode: s}
}

// Collapse reduces the systematic axes of a log-likelihood array.
//
// ll has shape pre... + syst... + post..., where the systematic axes start at
// axis preAxes and span systAxes axes. The systematic axes are removed from
// the result for every mode except NoCollapse.
func Collapse(ll tensor.Array, preAxes, systAxes int, mode Systematics) (tensor.Array, error) {
	if mode.mode == SystNone || systAxes == 0 {
		return ll, nil
	}
	if preAxes+systAxes > ll.NDim() {
		return tensor.Array{}, &ShapeMismatchError{
			Op:     "Collapse",
			Detail: fmt.Sprintf("array rank %d too small for %d+%d collapse axes", ll.NDim(), preAxes, systAxes),
		}
	}

	preShape := ll.Shape[:preAxes]
	systShape := ll.Shape[preAxes : preAxes+systAxes]
	postShape := ll.Shape[preAxes+systAxes:]
	nPre := tensor.Size(preShape)
	nSyst := tensor.Size(systShape)
	nPost := tensor.Size(postShape)
	outShape := tensor.Concat(preShape, postShape)

	switch mode.mode {
	case SystProfile:
		out := make([]float64, nPre*nPost)
		for i := 0; i < nPre; i++ {
			for k := 0; k < nPost; k++ {
				best := math.Inf(-1)
				for j := 0; j < nSyst; j++ {
					v := ll.Data[(i*nSyst+j)*nPost+k]
					if v > best {
						best = v
					}
				}
				out[i*nPost+k] = best
			}
		}
		return tensor.Array{Data: out, Shape: outShape}, nil

	case SystMarginal:
		out := make([]float64, nPre*nPost)
		buf := make([]float64, nSyst)
		logN := math.Log(float64(nSyst))
		for i := 0; i < nPre; i++ {
			for k := 0; k < nPost; k++ {
				for j := 0; j < nSyst; j++ {
					buf[j] = ll.Data[(i*nSyst+j)*nPost+k]
				}
				out[i*nPost+k] = floats.LogSumExp(buf) - logN
			}
		}
		return tensor.Array{Data: out, Shape: outShape}, nil

	case SystFixed:
		j, err := tensor.Ravel(mode.index, systShape)
		if err != nil {
			return tensor.Array{}, &ShapeMismatchError{Op: "Collapse", Detail: fmt.Sprintf("fixed systematics index %v invalid for toy shape %v", mode.index, systShape)}
		}
		out := make([]float64, nPre*nPost)
		for i := 0; i < nPre; i++ {
			for k := 0; k < nPost; k++ {
				out[i*nPost+k] = ll.Data[(i*nSyst+j)*nPost+k]
			}
		}
		return tensor.Array{Data: out, Shape: outShape}, nil

	case SystIndexArray:
		idx := mode.indices
		wantShape := tensor.Concat(preShape, postShape, []int{systAxes})
		if !tensor.SameShape(idx.Shape, wantShape) {
			return tensor.Array{}, &ShapeMismatchError{
				Op:     "Collapse",
				Detail: fmt.Sprintf("index array shape %v does not match required %v", idx.Shape, wantShape),
			}
		}
		out := make([]float64, nPre*nPost)
		multi := make([]int, systAxes)
		for i := 0; i < nPre; i++ {
			for k := 0; k < nPost; k++ {
				row := idx.Row(i*nPost + k)
				for a := range multi {
					multi[a] = int(row[a])
				}
				j, err := tensor.Ravel(multi, systShape)
				if err != nil {
					return tensor.Array{}, &ShapeMismatchError{Op: "Collapse", Detail: fmt.Sprintf("systematics index %v invalid for toy shape %v", multi, systShape)}
				}
				out[i*nPost+k] = ll.Data[(i*nSyst+j)*nPost+k]
			}
		}
		return tensor.Array{Data: out, Shape: outShape}, nil
	}

	return tensor.Array{}, &UnknownModeError{Mode: mode.String()}
}
