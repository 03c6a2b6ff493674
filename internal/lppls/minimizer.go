package lppls

import (
	"errors"
	"fmt"
	"strings"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// ErrNonConvergence marks a numerical failure of a single optimizer run.
// The fitter retries with a fresh seed on errors wrapping it.
var ErrNonConvergence = errors.New("optimizer did not converge")

// ErrUnknownMinimizer is returned by NewMinimizer for unsupported names.
var ErrUnknownMinimizer = errors.New("unknown minimizer")

// Minimizer method names.
const (
	MethodNelderMead = "Nelder-Mead"
	MethodBFGS       = "BFGS"
	MethodLBFGS      = "L-BFGS"
	MethodCMAES      = "CMA-ES"
)

// MinimizeResult is the outcome of one local search.
type MinimizeResult struct {
	X       []float64
	F       float64
	Success bool
	Status  string
}

// Minimizer searches for a local minimum of f starting at x0. Stochastic
// methods draw only from a source seeded with seed; deterministic ones
// ignore it.
//
// Implementations must be safe for concurrent use when the scanner runs in
// parallel; f itself is safe to call concurrently.
type Minimizer interface {
	Minimize(f func(x []float64) float64, x0 []float64, seed uint64) (MinimizeResult, error)
}

// MinimizerFunc adapts a function to the Minimizer interface.
type MinimizerFunc func(f func(x []float64) float64, x0 []float64, seed uint64) (MinimizeResult, error)

// Minimize calls fn(f, x0, seed).
func (fn MinimizerFunc) Minimize(f func(x []float64) float64, x0 []float64, seed uint64) (MinimizeResult, error) {
	return fn(f, x0, seed)
}

// GonumMinimizer runs one of the gonum optimize methods.
type GonumMinimizer struct {
	Method string
	// FuncEvaluations caps objective evaluations per run; 0 uses the method default.
	FuncEvaluations int

	newMethod    func(seed uint64) optimize.Method
	needGradient bool
	evalsPerDim  int
}

// NewMinimizer returns the minimizer registered under name. An empty name
// selects Nelder-Mead. Matching ignores case.
func NewMinimizer(name string, funcEvaluations int) (*GonumMinimizer, error) {
	g := &GonumMinimizer{FuncEvaluations: funcEvaluations, evalsPerDim: 200}
	switch strings.ToLower(name) {
	case "", strings.ToLower(MethodNelderMead), "neldermead":
		g.Method = MethodNelderMead
		g.newMethod = func(uint64) optimize.Method { return &optimize.NelderMead{} }
	case strings.ToLower(MethodBFGS):
		g.Method = MethodBFGS
		g.newMethod = func(uint64) optimize.Method { return &optimize.BFGS{} }
		g.needGradient = true
	case strings.ToLower(MethodLBFGS), "lbfgs":
		g.Method = MethodLBFGS
		g.newMethod = func(uint64) optimize.Method { return &optimize.LBFGS{} }
		g.needGradient = true
	case strings.ToLower(MethodCMAES), "cmaes":
		g.Method = MethodCMAES
		g.newMethod = func(seed uint64) optimize.Method {
			return &optimize.CmaEsChol{Src: exprand.NewSource(seed)}
		}
		g.evalsPerDim = 2500
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMinimizer, name)
	}
	return g, nil
}

// Minimize runs the configured method. A run stopped by an evaluation or
// iteration limit, or one that converged on the Penalty plateau, is reported
// with Success=false; a method error is wrapped in ErrNonConvergence.
func (g *GonumMinimizer) Minimize(f func(x []float64) float64, x0 []float64, seed uint64) (MinimizeResult, error) {
	p := optimize.Problem{Func: f}
	if g.needGradient {
		p.Grad = func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
		}
	}
	evals := g.FuncEvaluations
	if evals <= 0 {
		evals = g.evalsPerDim * len(x0)
	}
	settings := &optimize.Settings{
		FuncEvaluations: evals,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 100},
	}

	res, err := optimize.Minimize(p, x0, settings, g.newMethod(seed))
	if err != nil {
		return MinimizeResult{}, fmt.Errorf("%w: %s: %v", ErrNonConvergence, g.Method, err)
	}
	return MinimizeResult{
		X:       res.X,
		F:       res.F,
		Success: !res.Status.Early() && res.F < Penalty,
		Status:  res.Status.String(),
	}, nil
}
