// Package lppls fits the Log-Periodic Power Law Singularity model to
// observation windows and scans nested windows of a series.
//
// The seven model parameters are split in two: the nonlinear (tc, m, w) are
// searched by a local minimizer, the linear (a, b, c1, c2) are solved in
// closed form for every candidate (tc, m, w).
package lppls

import (
	"math"

	"BubbleSentinel/internal/model"
)

// Predict evaluates the LPPLS model at time t.
//
// The cosine term oscillates in ln(tc-t) while the sine term takes tc-t
// directly. Both fitted records and stored scans depend on this exact form.
func Predict(t float64, p model.NonlinearParams, l model.LinearParams) float64 {
	dt := p.TC - t
	return l.A + math.Pow(dt, p.M)*(l.B+l.C1*math.Cos(p.W*math.Log(dt))+l.C2*math.Sin(p.W*dt))
}

// DeriveC folds (c1, c2) into the single oscillation amplitude c.
// Returns 0 when either component is exactly zero.
func DeriveC(c1, c2 float64) float64 {
	if c1 == 0 || c2 == 0 {
		return 0
	}
	return c1 / math.Cos(math.Atan(c2/c1))
}

// Oscillations counts the log-periodic oscillations between t1 and t2.
func Oscillations(w, tc, t1, t2 float64) float64 {
	return (w / (2 * math.Pi)) * math.Log((tc-t1)/(tc-t2))
}

// Damping is the ratio of the power-law trend to the oscillation amplitude.
func Damping(m, w, b, c float64) float64 {
	return (m * math.Abs(b)) / (w * math.Abs(c))
}
