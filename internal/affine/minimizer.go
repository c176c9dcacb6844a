package affine

import (
	"github.com/CBICA/greedy/internal/opt"
	"gonum.org/v1/gonum/optimize"
)

// Method selects which local or global minimizer drives the affine
// solver, the "Powell-family" switch of §6.
type Method int

const (
	// MethodBFGS is the default quasi-Newton local minimizer.
	MethodBFGS Method = iota
	// MethodNelderMead is a derivative-free local simplex method.
	MethodNelderMead
	// MethodMayfly is the population-based derivative-free global
	// search, reusing the teacher's mayfly adapter.
	MethodMayfly
)

// Minimizer mirrors internal/opt.Optimizer's calling convention (the
// adapter boundary the spec calls out), but additionally accepts an
// optional analytic gradient so quasi-Newton methods can use it.
type Minimizer interface {
	Run(cost func([]float64) float64, grad func([]float64) []float64, x0 []float64, maxEvals int) ([]float64, float64)
}

type gonumMinimizer struct{ method optimize.Method }

// NewGonumMinimizer wraps gonum/optimize's BFGS or Nelder-Mead methods.
func NewGonumMinimizer(method Method) Minimizer {
	if method == MethodNelderMead {
		return gonumMinimizer{method: &optimize.NelderMead{}}
	}
	return gonumMinimizer{method: &optimize.BFGS{}}
}

func (g gonumMinimizer) Run(cost func([]float64) float64, grad func([]float64) []float64, x0 []float64, maxEvals int) ([]float64, float64) {
	problem := optimize.Problem{Func: cost}
	if grad != nil {
		problem.Grad = func(dst, x []float64) { copy(dst, grad(x)) }
	}
	settings := &optimize.Settings{FuncEvaluations: maxEvals}
	result, err := optimize.Minimize(problem, x0, settings, g.method)
	if err != nil || result == nil {
		return x0, cost(x0)
	}
	return result.X, result.F
}

// mayflyMinimizer adapts opt.Optimizer (unbounded-gradient, bounded-box
// search) to Minimizer by centering a symmetric search box on x0.
type mayflyMinimizer struct {
	inner opt.Optimizer
	bound float64
}

// NewMayflyMinimizer builds a population-based minimizer with a search
// box of [x0-bound, x0+bound] per parameter.
func NewMayflyMinimizer(maxIters, popSize int, seed int64, bound float64) Minimizer {
	return mayflyMinimizer{inner: opt.NewMayfly(maxIters, popSize, seed), bound: bound}
}

func (m mayflyMinimizer) Run(cost func([]float64) float64, _ func([]float64) []float64, x0 []float64, _ int) ([]float64, float64) {
	dim := len(x0)
	// The search runs over the offset from x0, so the one interval
	// [-bound, bound] is the same box for every parameter.
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := range lower {
		lower[i] = -m.bound
		upper[i] = m.bound
	}
	shift := func(delta []float64) []float64 {
		x := make([]float64, dim)
		for i := range x {
			x[i] = x0[i] + delta[i]
		}
		return x
	}
	delta, f := m.inner.Run(func(d []float64) float64 { return cost(shift(d)) }, lower, upper, dim)
	return shift(delta), f
}
