// Package optimize implements bounded global maximum search for
// log-probability objectives.
//
// Two interchangeable strategies are provided: a population-based global
// stochastic search (differential evolution) operating directly on bounds,
// and a perturb-and-refine search that alternates random bounded steps with a
// projected quasi-Newton local refinement. Neither guarantees the global
// optimum; an unlucky search returns its best candidate without error.
package optimize

import (
	"fmt"
	"log/slog"
	"math"
)

// Method selects the search strategy.
type Method int

const (
	// MethodPerturbRefine repeatedly perturbs the best point with a bounded
	// random step and refines locally. This is the default.
	MethodPerturbRefine Method = iota

	// MethodGlobalSearch runs a population-based differential evolution over
	// the bounded parameter box. It requires finite bounds on every
	// parameter.
	MethodGlobalSearch
)

func (m Method) String() string {
	switch m {
	case MethodPerturbRefine:
		return "perturb-refine"
	case MethodGlobalSearch:
		return "global-search"
	}
	return fmt.Sprintf("invalid(%d)", int(m))
}

// UnknownMethodError reports an invalid optimizer method name.
type UnknownMethodError struct {
	Name string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("optimize: unknown method %q", e.Name)
}

// ParseMethod maps a method keyword to a Method. Unknown keywords are an
// UnknownMethodError.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "perturb-refine", "basin-hopping", "":
		return MethodPerturbRefine, nil
	case "global-search", "differential-evolution":
		return MethodGlobalSearch, nil
	}
	return 0, &UnknownMethodError{Name: s}
}

// Bound is a closed parameter interval; either side may be infinite.
type Bound struct {
	Lower float64
	Upper float64
}

// Finite reports whether both sides of the bound are finite.
func (b Bound) Finite() bool {
	return !math.IsInf(b.Lower, 0) && !math.IsInf(b.Upper, 0)
}

// Clamp returns v restricted to the bound.
func (b Bound) Clamp(v float64) float64 {
	if v < b.Lower {
		return b.Lower
	}
	if v > b.Upper {
		return b.Upper
	}
	return v
}

// Config controls a maximum search. The zero value selects perturb-refine
// with derived defaults.
type Config struct {
	// Method is the search strategy.
	Method Method

	// Iterations is the number of perturbation rounds (perturb-refine) or
	// generations (global search). Default: 100.
	Iterations int

	// PopulationSize is the number of candidates per generation for the
	// global search. Default: 15 per parameter.
	PopulationSize int

	// LocalIterations is the refinement budget per perturbation round.
	// Default: 200.
	LocalIterations int

	// Seed makes the search reproducible. 0 derives a seed from the clock.
	Seed uint64

	// Logger receives periodic progress records. Nil disables logging.
	Logger *slog.Logger
}

// withDefaults returns the config with unset fields filled in.
func (c Config) withDefaults(nParams int) Config {
	if c.Iterations <= 0 {
		c.Iterations = 100
	}
	if c.PopulationSize <= 0 {
		c.PopulationSize = 15 * nParams
	}
	if c.LocalIterations <= 0 {
		c.LocalIterations = 200
	}
	return c
}

// Objective is a log-probability function to be maximized. It may return
// -Inf anywhere; the search treats such points as valid but maximally bad.
type Objective func(params []float64) float64

// Result is the outcome of a maximum search.
type Result struct {
	// LogProbability is the best objective value found.
	LogProbability float64

	// Parameters is the argmax candidate.
	Parameters []float64

	// Evaluations counts objective calls.
	Evaluations int
}

// StartValues returns the default start point for a bounded search: the
// midpoint where both bounds are finite, the finite bound where only one side
// is bounded, and zero otherwise.
func StartValues(bounds []Bound) []float64 {
	x0 := make([]float64, len(bounds))
	for i, b := range bounds {
		loFin := !math.IsInf(b.Lower, 0)
		hiFin := !math.IsInf(b.Upper, 0)
		switch {
		case loFin && hiFin:
			x0[i] = (b.Lower + b.Upper) / 2
		case loFin:
			x0[i] = b.Lower
		case hiFin:
			x0[i] = b.Upper
		default:
			x0[i] = 0
		}
	}
	return x0
}

// StepSizes returns the default perturbation scale per parameter: half the
// bound range where finite, one otherwise.
func StepSizes(bounds []Bound) []float64 {
	step := make([]float64, len(bounds))
	for i, b := range bounds {
		if b.Finite() {
			step[i] = (b.Upper - b.Lower) / 2
		} else {
			step[i] = 1
		}
	}
	return step
}
