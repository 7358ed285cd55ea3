package cmd

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ast0815/likelihood-machine/core/likelihood"
	"github.com/ast0815/likelihood-machine/core/optimize"
	"github.com/ast0815/likelihood-machine/core/tensor"
)

// Analysis is the YAML description of one measurement and the hypotheses
// tested against it.
type Analysis struct {
	// Data is the measured reco-space event count vector.
	Data []float64 `yaml:"data"`

	// Response is the detector response matrix, optionally stacked over
	// leading systematic toy axes.
	Response ArraySpec `yaml:"response"`

	// TruthLimits caps each truth bin's expectation value. Empty means
	// unlimited.
	TruthLimits []float64 `yaml:"truth_limits"`

	// LimitMethod is "raise" (default) or "prohibit".
	LimitMethod string `yaml:"limit_method"`

	// EfficiencyThreshold is the column-sum cut deciding which truth bins
	// are constrainable.
	EfficiencyThreshold float64 `yaml:"efficiency_threshold"`

	// Systematics is the collapse mode: "profile" (default), "marginal" or
	// "none".
	Systematics string `yaml:"systematics"`

	// Truth is the truth-expectation vector used by eval and pvalue.
	Truth []float64 `yaml:"truth"`

	// Templates describe the linear-mix hypothesis used by fit.
	Templates []TemplateSpec `yaml:"templates"`

	Optimizer OptimizerSpec `yaml:"optimizer"`
	PValue    PValueSpec    `yaml:"pvalue"`
}

// ArraySpec is a flat row-major array with an explicit shape.
type ArraySpec struct {
	Shape  []int     `yaml:"shape"`
	Values []float64 `yaml:"values"`
}

// TemplateSpec is one truth template with its weight bounds. A missing upper
// bound means unbounded.
type TemplateSpec struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values"`
	Lower  float64   `yaml:"lower"`
	Upper  *float64  `yaml:"upper"`
}

// OptimizerSpec mirrors optimize.Config in YAML form.
type OptimizerSpec struct {
	Method          string `yaml:"method"`
	Iterations      int    `yaml:"iterations"`
	LocalIterations int    `yaml:"local_iterations"`
	PopulationSize  int    `yaml:"population_size"`
	Seed            uint64 `yaml:"seed"`
}

// PValueSpec configures the Monte Carlo trials.
type PValueSpec struct {
	N    int    `yaml:"n"`
	Seed uint64 `yaml:"seed"`
}

// LoadAnalysis reads and validates a YAML analysis file.
func LoadAnalysis(path string) (*Analysis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading analysis file: %w", err)
	}
	var a Analysis
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parsing analysis file: %w", err)
	}
	if len(a.Data) == 0 {
		return nil, fmt.Errorf("analysis file defines no data vector")
	}
	if len(a.Response.Shape) < 2 || len(a.Response.Values) == 0 {
		return nil, fmt.Errorf("analysis file defines no response matrix")
	}
	return &a, nil
}

// Machine builds the likelihood machine described by the analysis.
func (a *Analysis) Machine() (*likelihood.Machine, error) {
	response, err := tensor.New(a.Response.Values, a.Response.Shape...)
	if err != nil {
		return nil, fmt.Errorf("response matrix: %w", err)
	}
	method, err := likelihood.ParseLimitMethod(a.LimitMethod)
	if err != nil {
		return nil, err
	}
	return likelihood.NewMachine(tensor.Vector(a.Data), response, likelihood.MachineConfig{
		TruthLimits:  a.TruthLimits,
		LimitMethod:  method,
		EffThreshold: a.EfficiencyThreshold,
	})
}

// SystematicsMode parses the configured collapse mode. The empty string
// defaults to profiling rather than a raw multi-toy result, since every
// command here needs a scalar likelihood.
func (a *Analysis) SystematicsMode() (likelihood.Systematics, error) {
	if a.Systematics == "" {
		return likelihood.Profile(), nil
	}
	return likelihood.ParseSystematics(a.Systematics)
}

// Hypothesis builds the template-mix hypothesis of the fit and pvalue
// commands.
func (a *Analysis) Hypothesis() (*likelihood.CompositeHypothesis, error) {
	if len(a.Templates) == 0 {
		return nil, fmt.Errorf("analysis file defines no truth templates")
	}
	templates := make([][]float64, len(a.Templates))
	limits := make([]likelihood.Limit, len(a.Templates))
	names := make([]string, len(a.Templates))
	for i, tpl := range a.Templates {
		templates[i] = tpl.Values
		upper := math.Inf(1)
		if tpl.Upper != nil {
			upper = *tpl.Upper
		}
		limits[i] = likelihood.Limit{Lower: tpl.Lower, Upper: upper}
		names[i] = tpl.Name
	}
	return likelihood.TemplateHypothesis(templates, limits, names)
}

// OptimizerConfig translates the YAML optimizer settings.
func (a *Analysis) OptimizerConfig() (optimize.Config, error) {
	method, err := optimize.ParseMethod(a.Optimizer.Method)
	if err != nil {
		return optimize.Config{}, err
	}
	return optimize.Config{
		Method:          method,
		Iterations:      a.Optimizer.Iterations,
		LocalIterations: a.Optimizer.LocalIterations,
		PopulationSize:  a.Optimizer.PopulationSize,
		Seed:            a.Optimizer.Seed,
	}, nil
}
