package optimize

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Maximize searches for the parameters maximizing obj within bounds using the
// configured method. The search runs to its fixed iteration budget and
// returns the best candidate found; failing to locate the true global
// optimum is an accuracy limitation, not an error.
func Maximize(obj Objective, bounds []Bound, cfg Config) (Result, error) {
	if len(bounds) == 0 {
		return Result{}, fmt.Errorf("optimize: no parameter bounds supplied")
	}
	cfg = cfg.withDefaults(len(bounds))

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	switch cfg.Method {
	case MethodPerturbRefine:
		return perturbRefine(obj, bounds, cfg, rng)
	case MethodGlobalSearch:
		return globalSearch(obj, bounds, cfg, rng)
	}
	return Result{}, &UnknownMethodError{Name: cfg.Method.String()}
}

// perturbRefine is a basin-hopping style search: perturb the best point with
// a bounded random step, refine locally with a projected quasi-Newton
// minimizer, keep the best point found over the iteration budget.
func perturbRefine(obj Objective, bounds []Bound, cfg Config, rng *rand.Rand) (Result, error) {
	x0 := StartValues(bounds)
	step := StepSizes(bounds)

	refiner := &localRefiner{
		f:      func(x []float64) float64 { return -obj(x) },
		bounds: bounds,
	}

	best, fBest := refiner.minimize(x0, cfg.LocalIterations)

	for iter := 0; iter < cfg.Iterations; iter++ {
		proposal := Step(best, x0, step, bounds, rng)
		x, fx := refiner.minimize(proposal, cfg.LocalIterations)
		if fx < fBest {
			fBest = fx
			best = x
			if cfg.Logger != nil {
				cfg.Logger.Debug("perturb-refine improved",
					"iteration", iter,
					"log_probability", -fBest,
				)
			}
		}
	}

	return Result{
		LogProbability: -fBest,
		Parameters:     best,
		Evaluations:    refiner.evals,
	}, nil
}

// globalSearch is a rand/1/bin differential evolution over a finite box.
func globalSearch(obj Objective, bounds []Bound, cfg Config, rng *rand.Rand) (Result, error) {
	for i, b := range bounds {
		if !b.Finite() {
			return Result{}, fmt.Errorf("optimize: global search requires finite bounds, parameter %d has %v..%v", i, b.Lower, b.Upper)
		}
	}

	const (
		mutation  = 0.8
		crossover = 0.9
	)

	n := len(bounds)
	popSize := cfg.PopulationSize
	if popSize < 4 {
		popSize = 4
	}
	evals := 0

	// Initial population uniform in the box.
	pop := make([][]float64, popSize)
	fitness := make([]float64, popSize)
	for i := range pop {
		pop[i] = make([]float64, n)
		for j, b := range bounds {
			pop[i][j] = b.Lower + rng.Float64()*(b.Upper-b.Lower)
		}
		fitness[i] = -obj(pop[i])
		evals++
	}

	bestIdx := 0
	for i := 1; i < popSize; i++ {
		if fitness[i] < fitness[bestIdx] {
			bestIdx = i
		}
	}

	trial := make([]float64, n)
	for gen := 0; gen < cfg.Iterations; gen++ {
		for i := 0; i < popSize; i++ {
			// Pick three distinct donors, none equal to i.
			a := rng.IntN(popSize)
			for a == i {
				a = rng.IntN(popSize)
			}
			b := rng.IntN(popSize)
			for b == i || b == a {
				b = rng.IntN(popSize)
			}
			c := rng.IntN(popSize)
			for c == i || c == a || c == b {
				c = rng.IntN(popSize)
			}

			forced := rng.IntN(n)
			for j := 0; j < n; j++ {
				if j == forced || rng.Float64() < crossover {
					trial[j] = bounds[j].Clamp(pop[a][j] + mutation*(pop[b][j]-pop[c][j]))
				} else {
					trial[j] = pop[i][j]
				}
			}

			fTrial := -obj(trial)
			evals++
			if fTrial <= fitness[i] && !math.IsNaN(fTrial) {
				copy(pop[i], trial)
				fitness[i] = fTrial
				if fTrial < fitness[bestIdx] {
					bestIdx = i
				}
			}
		}
		if cfg.Logger != nil && (gen+1)%25 == 0 {
			cfg.Logger.Debug("global search progress",
				"generation", gen+1,
				"log_probability", -fitness[bestIdx],
			)
		}
	}

	best := make([]float64, n)
	copy(best, pop[bestIdx])
	return Result{
		LogProbability: -fitness[bestIdx],
		Parameters:     best,
		Evaluations:    evals,
	}, nil
}
