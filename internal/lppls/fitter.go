package lppls

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"BubbleSentinel/internal/model"
)

// Bounds is a closed sampling interval.
type Bounds struct {
	Lo float64
	Hi float64
}

func (b Bounds) draw(rng *rand.Rand) float64 {
	return b.Lo + rng.Float64()*(b.Hi-b.Lo)
}

// SeedBounds are the intervals initial (tc, m, w) are drawn from. They only
// bound the starting point; the minimizer itself is unconstrained.
type SeedBounds struct {
	TC Bounds
	M  Bounds
	W  Bounds
}

// NewSeedBounds returns the seed intervals for a window spanning [t1, t2]:
// tc within half the window length of t2 but no more than 60 before or 252
// after it, m in [0, 1] and w in [2, 15].
func NewSeedBounds(t1, t2 float64) SeedBounds {
	half := 0.5 * (t2 - t1)
	return SeedBounds{
		TC: Bounds{Lo: max(t2-60, t2-half), Hi: min(t2+252, t2+half)},
		M:  Bounds{Lo: 0, Hi: 1},
		W:  Bounds{Lo: 2, Hi: 15},
	}
}

// Draw samples tc, m and w in that order.
func (b SeedBounds) Draw(rng *rand.Rand) model.NonlinearParams {
	return model.NonlinearParams{
		TC: b.TC.draw(rng),
		M:  b.M.draw(rng),
		W:  b.W.draw(rng),
	}
}

// Fitter fits the LPPLS model to a single window with random restarts.
type Fitter struct {
	// MaxSearches bounds the number of optimizer runs per window.
	MaxSearches int
	Minimizer   Minimizer
}

// NewFitter creates a Fitter.
func NewFitter(maxSearches int, m Minimizer) *Fitter {
	return &Fitter{MaxSearches: maxSearches, Minimizer: m}
}

// Fit searches for LPPLS parameters of window. The first successful
// optimizer run wins. When every run fails the returned record has
// Fitted=false and no error is reported.
//
// Optimizer errors that do not wrap ErrNonConvergence, and context
// cancellation, abort the fit. rng may be nil, in which case a randomly
// seeded source is used.
func (f *Fitter) Fit(ctx context.Context, window model.Series, rng *rand.Rand) (model.FitRecord, error) {
	if err := window.Validate(); err != nil {
		return model.FitRecord{}, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	t1, t2 := window.First().T, window.Last().T
	bounds := NewSeedBounds(t1, t2)
	objective := Objective(window)

	searches := 0
	for searches < f.MaxSearches {
		if err := ctx.Err(); err != nil {
			return model.FitRecord{}, err
		}
		seed := bounds.Draw(rng)
		runSeed := rng.Uint64()
		searches++

		res, err := f.Minimizer.Minimize(objective, seed.Vector(), runSeed)
		if err != nil {
			if errors.Is(err, ErrNonConvergence) {
				continue
			}
			return model.FitRecord{}, fmt.Errorf("fit window [%v, %v]: %w", t1, t2, err)
		}
		if !res.Success {
			continue
		}
		if rec, ok := newRecord(window, model.NonlinearFromVector(res.X), searches); ok {
			return rec, nil
		}
	}
	return model.NotFound(t1, t2, searches), nil
}

// newRecord completes an optimized (tc, m, w) into a FitRecord. It rejects
// optima at which the linear system is singular or the model cannot be
// evaluated over the window, i.e. searches that never left the Penalty
// plateau.
func newRecord(window model.Series, p model.NonlinearParams, searches int) (model.FitRecord, bool) {
	l := SolveLinear(window, p)
	if IsNaN(l) {
		return model.FitRecord{}, false
	}
	if ssr := SSR(window, p, l); math.IsNaN(ssr) || math.IsInf(ssr, 0) || ssr >= Penalty {
		return model.FitRecord{}, false
	}
	t1, t2 := window.First().T, window.Last().T
	c := DeriveC(l.C1, l.C2)
	return model.FitRecord{
		T1:       t1,
		T2:       t2,
		TC:       p.TC,
		M:        p.M,
		W:        p.W,
		A:        l.A,
		B:        l.B,
		C:        c,
		C1:       l.C1,
		C2:       l.C2,
		O:        Oscillations(p.W, p.TC, t1, t2),
		D:        Damping(p.M, p.W, l.B, c),
		Fitted:   true,
		Searches: searches,
	}, true
}
