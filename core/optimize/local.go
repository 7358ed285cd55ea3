package optimize

import (
	"math"
)

// localRefiner minimizes a smooth function over a bounded box using projected
// gradient descent with a Barzilai-Borwein (secant quasi-Newton) step length
// and Armijo backtracking. Gradients are numerical central differences, so
// the objective only needs to be evaluable.
type localRefiner struct {
	f      func([]float64) float64
	bounds []Bound
	evals  int
}

const (
	refineGradTol  = 1e-9 // projected-gradient infinity norm
	refineArmijo   = 1e-4 // sufficient-decrease constant
	refineMaxHalve = 40   // backtracking halvings before giving up
	refineDiffStep = 1e-7 // relative finite-difference step
)

// project clamps x into the bounded box, in place.
func (r *localRefiner) project(x []float64) {
	for i := range x {
		x[i] = r.bounds[i].Clamp(x[i])
	}
}

// gradient computes a central finite-difference gradient, falling back to a
// one-sided difference at the box boundary.
func (r *localRefiner) gradient(x []float64, fx float64, grad []float64) {
	xi := make([]float64, len(x))
	copy(xi, x)
	for i := range x {
		h := refineDiffStep * math.Max(1, math.Abs(x[i]))
		lo, hi := x[i]-h, x[i]+h
		b := r.bounds[i]

		switch {
		case lo >= b.Lower && hi <= b.Upper:
			xi[i] = hi
			fp := r.eval(xi)
			xi[i] = lo
			fm := r.eval(xi)
			grad[i] = (fp - fm) / (2 * h)
		case hi <= b.Upper:
			xi[i] = hi
			grad[i] = (r.eval(xi) - fx) / h
		case lo >= b.Lower:
			xi[i] = lo
			grad[i] = (fx - r.eval(xi)) / h
		default:
			grad[i] = 0
		}
		xi[i] = x[i]
	}
}

func (r *localRefiner) eval(x []float64) float64 {
	r.evals++
	return r.f(x)
}

// minimize runs the refinement from x0 and returns the best point and value.
// A non-finite starting value is returned unchanged: the surrounding search
// is responsible for escaping the -Inf plateau by random perturbation.
func (r *localRefiner) minimize(x0 []float64, maxIter int) ([]float64, float64) {
	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)
	r.project(x)

	fx := r.eval(x)
	if math.IsInf(fx, 0) || math.IsNaN(fx) {
		return x, fx
	}

	grad := make([]float64, n)
	prevX := make([]float64, n)
	prevGrad := make([]float64, n)
	trial := make([]float64, n)

	r.gradient(x, fx, grad)
	step := 1.0
	if norm := infNorm(grad); norm > 1 {
		step = 1 / norm
	}

	for iter := 0; iter < maxIter; iter++ {
		// Projected-gradient stationarity check.
		stationary := true
		for i := range x {
			moved := r.bounds[i].Clamp(x[i] - grad[i])
			if math.Abs(moved-x[i]) > refineGradTol {
				stationary = false
				break
			}
		}
		if stationary {
			break
		}

		// Backtracking line search along the projected steepest descent
		// direction.
		t := step
		var fTrial float64
		accepted := false
		for k := 0; k < refineMaxHalve; k++ {
			var decrease float64
			for i := range x {
				trial[i] = r.bounds[i].Clamp(x[i] - t*grad[i])
				decrease += grad[i] * (x[i] - trial[i])
			}
			fTrial = r.eval(trial)
			if !math.IsNaN(fTrial) && fTrial <= fx-refineArmijo*decrease {
				accepted = true
				break
			}
			t /= 2
		}
		if !accepted {
			break
		}

		copy(prevX, x)
		copy(prevGrad, grad)
		copy(x, trial)
		fx = fTrial
		r.gradient(x, fx, grad)

		// Barzilai-Borwein secant step length for the next iteration.
		var sy, ss float64
		for i := range x {
			s := x[i] - prevX[i]
			y := grad[i] - prevGrad[i]
			sy += s * y
			ss += s * s
		}
		if sy > 0 && ss > 0 {
			step = ss / sy
			if step > 1e6 {
				step = 1e6
			}
		} else {
			step = 1.0
			if norm := infNorm(grad); norm > 1 {
				step = 1 / norm
			}
		}
	}

	return x, fx
}

func infNorm(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
