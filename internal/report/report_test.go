package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"BubbleSentinel/internal/calculator"
	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
)

var day = calculator.Ordinal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

func TestFitTable(t *testing.T) {
	var buf bytes.Buffer
	FitTable(&buf, "SPX", model.FitRecord{
		T1: day - 79, T2: day, TC: day + 10, M: 0.5, W: 9, Fitted: true, Searches: 3, C: math.NaN(),
	})

	out := buf.String()
	assert.Contains(t, out, "SPX")
	assert.Contains(t, out, "2024-03-11 (+10.0)")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "NaN")
}

func TestFitTable_NotFound(t *testing.T) {
	var buf bytes.Buffer
	FitTable(&buf, "SPX", model.NotFound(day-79, day, 25))

	assert.Contains(t, buf.String(), "not found")
	assert.NotContains(t, buf.String(), "damping")
}

func TestScanTable(t *testing.T) {
	res := &model.ScanResult{
		WindowSizes: []int{30, 25},
		Groups: []model.WindowGroup{
			{Index: 0, T1: day - 29, T2: day, P2: math.Log(100), Fits: []model.FitRecord{
				{TC: day + 5, Fitted: true}, {TC: day + 20, Fitted: true},
			}},
			{Index: 1, T1: day - 24, T2: day + 5, P2: math.Log(110), Fits: make([]model.FitRecord, 2)},
		},
	}
	var buf bytes.Buffer
	ScanTable(&buf, "SPX", res)

	out := buf.String()
	assert.Contains(t, out, "2024-03-06")
	assert.Contains(t, out, "2024-03-21")
	assert.Contains(t, out, "110.00")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "0/2")
	assert.Contains(t, out, "2/4")
}

func TestSurfaceTable(t *testing.T) {
	s := &lppls.Surface{
		Param1: "m", Param2: "w", Fixed: "tc", FixedValue: day + 20, Optimum: 0.5,
		X: []float64{0.25, 0.75},
		Y: []float64{4, 8},
		Z: [][]float64{{3, 2}, {0.5, 9}},
	}
	var buf bytes.Buffer
	SurfaceTable(&buf, s)

	out := buf.String()
	assert.Contains(t, out, "0.5*")
	assert.Contains(t, out, "0.75")
	assert.Contains(t, out, "8.00")
	assert.NotContains(t, out, "3*")
}
