package lppls

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMinimizer(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", MethodNelderMead},
		{"nelder-mead", MethodNelderMead},
		{"BFGS", MethodBFGS},
		{"l-bfgs", MethodLBFGS},
		{"cma-es", MethodCMAES},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			m, err := NewMinimizer(tc.name, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.Method)
		})
	}

	_, err := NewMinimizer("Powell", 0)
	require.ErrorIs(t, err, ErrUnknownMinimizer)
}

func TestNelderMead_RecoversSyntheticBubble(t *testing.T) {
	l := trueLinear
	l.C2 = 0
	window := synthetic(100, trueNonlinear, l)
	nm, err := NewMinimizer(MethodNelderMead, 5000)
	require.NoError(t, err)

	res, err := nm.Minimize(Objective(window), []float64{119.5, 0.31, 6.45}, 0)

	require.NoError(t, err)
	require.True(t, res.Success, "status %s", res.Status)
	assert.InDelta(t, 120, res.X[0], 120*0.05)
	assert.InDelta(t, 0.3, res.X[1], 0.1)
	assert.InDelta(t, 6.5, res.X[2], 0.5)
	assert.Less(t, res.F, 1e-3)
}

func TestBFGS_ImprovesOnSeed(t *testing.T) {
	l := trueLinear
	l.C2 = 0
	window := synthetic(100, trueNonlinear, l)
	obj := Objective(window)
	seed := []float64{119, 0.32, 6.4}
	bfgs, err := NewMinimizer(MethodBFGS, 0)
	require.NoError(t, err)

	res, err := bfgs.Minimize(obj, seed, 0)
	if err != nil {
		require.ErrorIs(t, err, ErrNonConvergence)
		return
	}
	assert.LessOrEqual(t, res.F, obj(seed))
}

func TestNelderMead_PenaltyPlateauIsNotSuccess(t *testing.T) {
	// With tc inside the window the model is undefined at every observation
	// after tc, so the whole neighbourhood of the seed evaluates to Penalty.
	window := synthetic(100, trueNonlinear, trueLinear)
	nm, err := NewMinimizer(MethodNelderMead, 0)
	require.NoError(t, err)

	res, err := nm.Minimize(Objective(window), []float64{83.24, 0.5, 10}, 0)

	require.NoError(t, err)
	assert.Equal(t, Penalty, res.F)
	assert.False(t, res.Success, "status %s", res.Status)
}

func TestCMAES_ReproducibleWithSeed(t *testing.T) {
	l := trueLinear
	l.C2 = 0
	obj := Objective(synthetic(100, trueNonlinear, l))
	x0 := []float64{118, 0.35, 6.8}
	cma, err := NewMinimizer(MethodCMAES, 1500)
	require.NoError(t, err)

	a, errA := cma.Minimize(obj, x0, 42)
	b, errB := cma.Minimize(obj, x0, 42)
	if errA != nil {
		require.EqualError(t, errB, errA.Error())
		return
	}
	require.NoError(t, errB)

	require.Len(t, b.X, len(a.X))
	for i := range a.X {
		assert.Equal(t, math.Float64bits(a.X[i]), math.Float64bits(b.X[i]), "x[%d]", i)
	}
	assert.Equal(t, math.Float64bits(a.F), math.Float64bits(b.F))
	assert.Equal(t, a.Status, b.Status)
}
