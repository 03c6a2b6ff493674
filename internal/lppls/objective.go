package lppls

import (
	"math"

	"BubbleSentinel/internal/model"
)

// Penalty replaces the objective wherever the model cannot be evaluated.
// It is finite so simplex and gradient methods keep comparing values.
const Penalty = 1e10

// Objective returns the sum of squared residuals of the LPPLS model over
// window as a function of x = [tc, m, w]. The linear params are solved for
// every call.
func Objective(window model.Series) func(x []float64) float64 {
	return func(x []float64) float64 {
		p := model.NonlinearFromVector(x)
		l := SolveLinear(window, p)
		if IsNaN(l) {
			return Penalty
		}
		ssr := SSR(window, p, l)
		if math.IsNaN(ssr) || math.IsInf(ssr, 0) {
			return Penalty
		}
		return ssr
	}
}

// SSR is the sum of squared differences between the model and the window.
func SSR(window model.Series, p model.NonlinearParams, l model.LinearParams) float64 {
	var sum float64
	for _, o := range window {
		d := Predict(o.T, p, l) - o.P
		sum += d * d
	}
	return sum
}
