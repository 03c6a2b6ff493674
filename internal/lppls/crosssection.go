package lppls

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"BubbleSentinel/internal/model"
)

var (
	// ErrNotFitted is returned when a cross-section is requested for a not-found record.
	ErrNotFitted = errors.New("record has no fitted parameters")
	// ErrInvalidCrossSection is returned for unknown or repeated parameter names.
	ErrInvalidCrossSection = errors.New("invalid cross-section parameters")
)

// tcHorizon is how far past the last observation the tc axis extends.
const tcHorizon = 90

// Surface holds objective values over a grid of two nonlinear parameters.
// Z[i][j] is the objective at Param1 = X[j], Param2 = Y[i].
type Surface struct {
	Param1     string
	Param2     string
	Fixed      string
	FixedValue float64
	X          []float64
	Y          []float64
	Z          [][]float64
	// Optimum is the objective at the fitted parameters.
	Optimum float64
}

// CrossSection evaluates the objective of window on a gridSize x gridSize
// grid of param1 and param2, holding the remaining nonlinear parameter at
// its fitted value. tc spans the 90 units after the last observation; m and
// w span 50% to 150% of their fitted values.
func CrossSection(window model.Series, rec model.FitRecord, param1, param2 string, gridSize int) (*Surface, error) {
	if !rec.Fitted {
		return nil, ErrNotFitted
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if gridSize < 2 {
		return nil, fmt.Errorf("%w: grid size %d", ErrInvalidCrossSection, gridSize)
	}
	fixed, err := fixedParam(param1, param2)
	if err != nil {
		return nil, err
	}

	last := window.Last().T
	fitted := rec.Nonlinear().Vector()
	axis := func(name string) []float64 {
		if name == model.FieldTC {
			return floats.Span(make([]float64, gridSize), last+1, last+tcHorizon)
		}
		v := fitted[paramIndex(name)]
		return floats.Span(make([]float64, gridSize), 0.5*v, 1.5*v)
	}

	s := &Surface{
		Param1:     param1,
		Param2:     param2,
		Fixed:      fixed,
		FixedValue: fitted[paramIndex(fixed)],
		X:          axis(param1),
		Y:          axis(param2),
		Z:          make([][]float64, gridSize),
	}

	objective := Objective(window)
	i1, i2 := paramIndex(param1), paramIndex(param2)
	x := make([]float64, 3)
	for i := range s.Y {
		s.Z[i] = make([]float64, gridSize)
		for j := range s.X {
			copy(x, fitted)
			x[i1] = s.X[j]
			x[i2] = s.Y[i]
			s.Z[i][j] = finiteOrPenalty(objective(x))
		}
	}
	s.Optimum = finiteOrPenalty(objective(fitted))
	return s, nil
}

func finiteOrPenalty(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Penalty
	}
	return v
}

func paramIndex(name string) int {
	switch name {
	case model.FieldTC:
		return 0
	case model.FieldM:
		return 1
	case model.FieldW:
		return 2
	}
	return -1
}

// fixedParam returns the nonlinear parameter that is neither p1 nor p2.
func fixedParam(p1, p2 string) (string, error) {
	if paramIndex(p1) < 0 || paramIndex(p2) < 0 {
		return "", fmt.Errorf("%w: %q, %q (want two of tc, m, w)", ErrInvalidCrossSection, p1, p2)
	}
	if p1 == p2 {
		return "", fmt.Errorf("%w: %q given twice", ErrInvalidCrossSection, p1)
	}
	for _, name := range []string{model.FieldTC, model.FieldM, model.FieldW} {
		if name != p1 && name != p2 {
			return name, nil
		}
	}
	return "", nil
}
