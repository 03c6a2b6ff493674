package lppls

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"BubbleSentinel/internal/model"
)

var (
	trueNonlinear = model.NonlinearParams{TC: 120, M: 0.3, W: 6.5}
	trueLinear    = model.LinearParams{A: 10, B: -1, C1: 0.1, C2: 0.2}
)

// synthetic samples the LPPLS model at t = 0..n-1.
func synthetic(n int, p model.NonlinearParams, l model.LinearParams) model.Series {
	s := make(model.Series, n)
	for i := range s {
		t := float64(i)
		s[i] = model.Observation{T: t, P: Predict(t, p, l)}
	}
	return s
}

// basisSeries samples a + b f + c1 g + c2 h, the combination SolveLinear fits.
func basisSeries(n int, p model.NonlinearParams, l model.LinearParams) model.Series {
	s := make(model.Series, n)
	for i := range s {
		t := float64(i)
		dt := math.Abs(p.TC - t)
		f := math.Pow(dt, p.M)
		phase := p.W * math.Log(dt)
		s[i] = model.Observation{T: t, P: l.A + l.B*f + l.C1*f*math.Cos(phase) + l.C2*f*math.Sin(phase)}
	}
	return s
}

// echoMinimizer reports the seed itself as a successful optimum.
var echoMinimizer = MinimizerFunc(func(f func([]float64) float64, x0 []float64, _ uint64) (MinimizeResult, error) {
	x := append([]float64(nil), x0...)
	return MinimizeResult{X: x, F: f(x), Success: true}, nil
})

// scriptedMinimizer replays results in order and repeats the last one.
type scriptedMinimizer struct {
	calls   atomic.Int64
	seeds   [][]float64
	results []scripted
}

type scripted struct {
	res MinimizeResult
	err error
}

func (s *scriptedMinimizer) Minimize(f func([]float64) float64, x0 []float64, _ uint64) (MinimizeResult, error) {
	n := int(s.calls.Add(1)) - 1
	s.seeds = append(s.seeds, append([]float64(nil), x0...))
	r := s.results[min(n, len(s.results)-1)]
	return r.res, r.err
}

func requireSameRecord(t *testing.T, want, got model.FitRecord) {
	t.Helper()
	require.Equal(t, want.Fitted, got.Fitted)
	require.Equal(t, want.Searches, got.Searches)
	for _, name := range model.Fields {
		w, _ := want.Field(name)
		g, _ := got.Field(name)
		require.Equal(t, math.Float64bits(w), math.Float64bits(g), "field %s: %v != %v", name, w, g)
	}
}

func requireSameScan(t *testing.T, want, got *model.ScanResult) {
	t.Helper()
	require.Equal(t, want.WindowSizes, got.WindowSizes)
	require.Len(t, got.Groups, len(want.Groups))
	for i := range want.Groups {
		wg, gg := want.Groups[i], got.Groups[i]
		require.Equal(t, wg.Index, gg.Index)
		require.Equal(t, wg.T1, gg.T1)
		require.Equal(t, wg.T2, gg.T2)
		require.Equal(t, wg.P2, gg.P2)
		require.Len(t, gg.Fits, len(wg.Fits))
		for k := range wg.Fits {
			requireSameRecord(t, wg.Fits[k], gg.Fits[k])
		}
	}
}
