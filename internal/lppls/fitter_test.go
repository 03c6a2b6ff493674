package lppls

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleSentinel/internal/model"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestNewSeedBounds(t *testing.T) {
	tests := []struct {
		name   string
		t1, t2 float64
		want   Bounds
	}{
		{"short window uses half length", 0, 99, Bounds{Lo: 49.5, Hi: 148.5}},
		{"long window capped at 60 before and 252 after", 0, 1000, Bounds{Lo: 940, Hi: 1252}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewSeedBounds(tc.t1, tc.t2)
			assert.Equal(t, tc.want, b.TC)
			assert.Equal(t, Bounds{Lo: 0, Hi: 1}, b.M)
			assert.Equal(t, Bounds{Lo: 2, Hi: 15}, b.W)
		})
	}
}

func TestFit_ZeroSearchesReturnsNotFound(t *testing.T) {
	m := &scriptedMinimizer{results: []scripted{{res: MinimizeResult{Success: true}}}}
	window := synthetic(50, trueNonlinear, trueLinear)

	rec, err := NewFitter(0, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	assert.False(t, rec.Fitted)
	assert.Equal(t, int64(0), m.calls.Load())
	assert.Equal(t, model.NotFound(0, 49, 0), rec)
}

func TestFit_FirstSuccessWins(t *testing.T) {
	l := trueLinear
	l.C2 = 0
	window := synthetic(100, trueNonlinear, l)
	m := &scriptedMinimizer{results: []scripted{
		{res: MinimizeResult{X: trueNonlinear.Vector(), Success: true}},
	}}

	rec, err := NewFitter(25, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	require.True(t, rec.Fitted)
	assert.Equal(t, int64(1), m.calls.Load())
	assert.Equal(t, 1, rec.Searches)
	assert.Equal(t, 0.0, rec.T1)
	assert.Equal(t, 99.0, rec.T2)
	assert.Equal(t, trueNonlinear, rec.Nonlinear())
	assert.InEpsilon(t, l.A, rec.A, 1e-6)
	assert.InEpsilon(t, l.B, rec.B, 1e-6)
	assert.InEpsilon(t, l.C1, rec.C1, 1e-6)
	assert.Equal(t, DeriveC(rec.C1, rec.C2), rec.C)
	assert.InDelta(t, Oscillations(6.5, 120, 0, 99), rec.O, 1e-12)
	assert.InDelta(t, Damping(0.3, 6.5, rec.B, rec.C), rec.D, 1e-12)
}

func TestFit_RetriesFailedSearches(t *testing.T) {
	window := synthetic(100, trueNonlinear, trueLinear)
	m := &scriptedMinimizer{results: []scripted{
		{err: ErrNonConvergence},
		{res: MinimizeResult{Success: false}},
		{err: errors.Join(errors.New("svd"), ErrNonConvergence)},
		{res: MinimizeResult{X: trueNonlinear.Vector(), Success: true}},
	}}

	rec, err := NewFitter(25, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	assert.True(t, rec.Fitted)
	assert.Equal(t, 4, rec.Searches)
	assert.Equal(t, int64(4), m.calls.Load())
}

func TestFit_SingularOptimumIsRetried(t *testing.T) {
	window := synthetic(100, trueNonlinear, trueLinear)
	m := &scriptedMinimizer{results: []scripted{
		// m = 0 makes the linear system singular.
		{res: MinimizeResult{X: []float64{120, 0, 6.5}, Success: true}},
		{res: MinimizeResult{X: trueNonlinear.Vector(), Success: true}},
	}}

	rec, err := NewFitter(25, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	assert.True(t, rec.Fitted)
	assert.Equal(t, 2, rec.Searches)
}

func TestFit_ExhaustedBudgetReturnsNotFound(t *testing.T) {
	window := synthetic(60, trueNonlinear, trueLinear)
	m := &scriptedMinimizer{results: []scripted{{err: ErrNonConvergence}}}

	rec, err := NewFitter(7, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	assert.False(t, rec.Fitted)
	assert.Equal(t, 7, rec.Searches)
	assert.Equal(t, int64(7), m.calls.Load())
	for _, name := range []string{"tc", "m", "w", "a", "b", "c", "c1", "c2", "O", "D"} {
		v, ok := rec.Field(name)
		require.True(t, ok)
		assert.Zero(t, v, name)
	}
}

func TestFit_UnrecognizedErrorIsFatal(t *testing.T) {
	boom := errors.New("boom")
	window := synthetic(60, trueNonlinear, trueLinear)
	m := &scriptedMinimizer{results: []scripted{{err: boom}}}

	_, err := NewFitter(25, m).Fit(context.Background(), window, newRand(1))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), m.calls.Load())
}

func TestFit_InvalidWindow(t *testing.T) {
	f := NewFitter(25, echoMinimizer)
	tests := []struct {
		name   string
		window model.Series
	}{
		{"empty", model.Series{}},
		{"non-increasing time", model.Series{{T: 1, P: 1}, {T: 1, P: 2}}},
		{"NaN value", model.Series{{T: 1, P: math.NaN()}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Fit(context.Background(), tc.window, newRand(1))
			require.ErrorIs(t, err, model.ErrInvalidSeries)
		})
	}
}

func TestFit_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	window := synthetic(60, trueNonlinear, trueLinear)

	_, err := NewFitter(25, echoMinimizer).Fit(ctx, window, newRand(1))

	require.ErrorIs(t, err, context.Canceled)
}

func TestFit_SeedsDrawnWithinBounds(t *testing.T) {
	window := synthetic(100, trueNonlinear, trueLinear)
	m := &scriptedMinimizer{results: []scripted{{res: MinimizeResult{Success: false}}}}

	_, err := NewFitter(200, m).Fit(context.Background(), window, newRand(3))
	require.NoError(t, err)

	b := NewSeedBounds(0, 99)
	require.Len(t, m.seeds, 200)
	for _, s := range m.seeds {
		assert.GreaterOrEqual(t, s[0], b.TC.Lo)
		assert.LessOrEqual(t, s[0], b.TC.Hi)
		assert.GreaterOrEqual(t, s[1], 0.0)
		assert.LessOrEqual(t, s[1], 1.0)
		assert.GreaterOrEqual(t, s[2], 2.0)
		assert.LessOrEqual(t, s[2], 15.0)
	}
}

func TestFit_NilRandIsAllowed(t *testing.T) {
	window := synthetic(100, trueNonlinear, trueLinear)

	rec, err := NewFitter(3, echoMinimizer).Fit(context.Background(), window, nil)

	require.NoError(t, err)
	assert.Equal(t, 99.0, rec.T2)
}

func TestFit_NelderMeadReproducibleWithSeed(t *testing.T) {
	l := trueLinear
	l.C2 = 0
	window := synthetic(100, trueNonlinear, l)
	nm, err := NewMinimizer(MethodNelderMead, 0)
	require.NoError(t, err)
	f := NewFitter(5, nm)

	a, err := f.Fit(context.Background(), window, newRand(11))
	require.NoError(t, err)
	b, err := f.Fit(context.Background(), window, newRand(11))
	require.NoError(t, err)

	requireSameRecord(t, a, b)
	assert.Equal(t, 0.0, a.T1)
	assert.Equal(t, 99.0, a.T2)
}

func TestFit_RejectsOptimumOnPenaltyPlateau(t *testing.T) {
	window := synthetic(100, trueNonlinear, trueLinear)
	nm, err := NewMinimizer(MethodNelderMead, 0)
	require.NoError(t, err)
	var calls int
	// The first run starts with tc inside the window and never leaves the
	// plateau; the second reports the true params.
	m := MinimizerFunc(func(f func([]float64) float64, x0 []float64, seed uint64) (MinimizeResult, error) {
		calls++
		if calls == 1 {
			res, err := nm.Minimize(f, []float64{83.24, 0.5, 10}, seed)
			if err == nil {
				res.Success = true
			}
			return res, err
		}
		return MinimizeResult{X: trueNonlinear.Vector(), Success: true}, nil
	})

	rec, err := NewFitter(25, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	require.True(t, rec.Fitted)
	assert.Equal(t, 2, rec.Searches)
	assert.Equal(t, 120.0, rec.TC)
}

func TestFit_RejectsOptimumWithTCInsideWindow(t *testing.T) {
	window := synthetic(100, trueNonlinear, trueLinear)
	m := &scriptedMinimizer{results: []scripted{
		// Solvable linear system, undefined model after t = 80.5.
		{res: MinimizeResult{X: []float64{80.5, 0.3, 6.5}, Success: true}},
		{res: MinimizeResult{X: trueNonlinear.Vector(), Success: true}},
	}}

	rec, err := NewFitter(25, m).Fit(context.Background(), window, newRand(1))

	require.NoError(t, err)
	require.True(t, rec.Fitted)
	assert.Equal(t, 2, rec.Searches)
	assert.Equal(t, 120.0, rec.TC)
}

func TestFit_CMAESReproducibleWithSeed(t *testing.T) {
	l := trueLinear
	l.C2 = 0
	window := synthetic(100, trueNonlinear, l)
	cma, err := NewMinimizer(MethodCMAES, 1500)
	require.NoError(t, err)
	f := NewFitter(3, cma)

	a, err := f.Fit(context.Background(), window, newRand(7))
	require.NoError(t, err)
	b, err := f.Fit(context.Background(), window, newRand(7))
	require.NoError(t, err)

	requireSameRecord(t, a, b)
}

func TestFit_RecoveryAcrossRepeatedTrials(t *testing.T) {
	if testing.Short() {
		t.Skip("repeated full fits")
	}
	window := synthetic(100, trueNonlinear, trueLinear)
	nm, err := NewMinimizer(MethodNelderMead, 0)
	require.NoError(t, err)
	f := NewFitter(25, nm)
	obj := Objective(window)

	const trials = 20
	var fitted, recovered int
	for trial := range trials {
		rec, err := f.Fit(context.Background(), window, newRand(uint64(100+trial)))
		require.NoError(t, err)
		assert.LessOrEqual(t, rec.Searches, 25)
		if !rec.Fitted {
			continue
		}
		fitted++
		// An accepted optimum is always evaluable over the window.
		assert.Greater(t, rec.TC, rec.T2, "trial %d", trial)
		ssr := obj(rec.Nonlinear().Vector())
		assert.False(t, math.IsNaN(ssr) || math.IsInf(ssr, 0), "trial %d", trial)
		assert.Less(t, ssr, Penalty, "trial %d", trial)

		if math.Abs(rec.TC-120) <= 6 && math.Abs(rec.M-0.3) <= 0.1 && math.Abs(rec.W-6.5) <= 0.5 {
			recovered++
		}
	}
	t.Logf("fitted %d/%d, recovered tc, m, w in %d/%d trials", fitted, trials, recovered, trials)
}
