package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// bound is a box constraint on one parameter. A collapsed bound (lo == hi)
// pins the parameter at that value and removes it from the optimization.
type bound struct {
	lo, hi float64
}

func (b bound) pinned() bool {
	return b.lo == b.hi
}

// sigmoid and its inverse map the optimizer's unconstrained space onto a
// bounded interval.
func sigmoid(u float64) float64 {
	return 1 / (1 + math.Exp(-u))
}

func logit(p float64) float64 {
	// Keep starting points strictly interior so the transform is finite.
	if p < 1e-6 {
		p = 1e-6
	}
	if p > 1-1e-6 {
		p = 1 - 1e-6
	}
	return math.Log(p / (1 - p))
}

// minimizeBounded minimizes f subject to box constraints. gonum's optimize
// package has no native box constraints, so each free coordinate is
// reparameterized through a scaled logistic transform and the search runs
// unconstrained; pinned coordinates are held at their bound. With a
// gradient the search uses L-BFGS (gradients mapped by the chain rule),
// without one it uses Nelder-Mead. The returned vector is always a usable
// best-effort point; a non-nil error means the optimizer signalled that it
// could not make further progress.
func minimizeBounded(f func(x []float64) float64, grad func(dst, x []float64), x0 []float64, bounds []bound) ([]float64, error) {
	var free []int
	for i, b := range bounds {
		if !b.pinned() {
			free = append(free, i)
		}
	}

	// full reconstructs the complete parameter vector from the
	// unconstrained coordinates of the free parameters.
	full := func(u []float64) []float64 {
		x := make([]float64, len(bounds))
		for i, b := range bounds {
			if b.pinned() {
				x[i] = b.lo
			}
		}
		for j, i := range free {
			b := bounds[i]
			x[i] = b.lo + (b.hi-b.lo)*sigmoid(u[j])
		}
		return x
	}

	if len(free) == 0 {
		return full(nil), nil
	}

	u0 := make([]float64, len(free))
	for j, i := range free {
		b := bounds[i]
		u0[j] = logit((x0[i] - b.lo) / (b.hi - b.lo))
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			return f(full(u))
		},
	}
	var method optimize.Method = &optimize.NelderMead{}
	if grad != nil {
		method = &optimize.LBFGS{}
		problem.Grad = func(dst, u []float64) {
			x := full(u)
			gx := make([]float64, len(x))
			grad(gx, x)
			for j, i := range free {
				b := bounds[i]
				s := sigmoid(u[j])
				dst[j] = gx[i] * (b.hi - b.lo) * s * (1 - s)
			}
		}
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	result, err := optimize.Minimize(problem, u0, settings, method)
	if result == nil {
		return full(u0), err
	}
	// A linesearch can fail right at the optimum, where no step improves
	// the function but the gradient is already flat. That point is a
	// converged result, not a failure. Flatness is judged relative to the
	// objective's scale: the likelihood is a sum over subjects, so the
	// gradient at numerical exhaustion grows with the sample.
	if err != nil && problem.Grad != nil {
		g := make([]float64, len(result.X))
		problem.Grad(g, result.X)
		if floats.Norm(g, 2) <= 1e-6*(1+math.Abs(result.F)) {
			err = nil
		}
	}
	return full(result.X), err
}
