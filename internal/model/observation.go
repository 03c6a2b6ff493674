package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSeries is returned for observation series that cannot be fitted.
var ErrInvalidSeries = errors.New("invalid observation series")

// Observation is one (time, value) pair. T is an ordinal day, P a log price.
type Observation struct {
	T float64
	P float64
}

// Series is an ordered sequence of observations with strictly increasing T.
type Series []Observation

// Validate checks that the series is non-empty, finite and strictly increasing in time.
func (s Series) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no observations", ErrInvalidSeries)
	}
	for i, o := range s {
		if math.IsNaN(o.T) || math.IsInf(o.T, 0) || math.IsNaN(o.P) || math.IsInf(o.P, 0) {
			return fmt.Errorf("%w: non-finite observation at index %d", ErrInvalidSeries, i)
		}
		if i > 0 && o.T <= s[i-1].T {
			return fmt.Errorf("%w: time not strictly increasing at index %d (%v <= %v)",
				ErrInvalidSeries, i, o.T, s[i-1].T)
		}
	}
	return nil
}

// First returns the first observation. The series must not be empty.
func (s Series) First() Observation { return s[0] }

// Last returns the last observation. The series must not be empty.
func (s Series) Last() Observation { return s[len(s)-1] }

// Times returns the time column.
func (s Series) Times() []float64 {
	ts := make([]float64, len(s))
	for i, o := range s {
		ts[i] = o.T
	}
	return ts
}

// Values returns the value column.
func (s Series) Values() []float64 {
	ps := make([]float64, len(s))
	for i, o := range s {
		ps[i] = o.P
	}
	return ps
}

// NewSeries zips parallel time and value slices into a Series.
func NewSeries(ts, ps []float64) (Series, error) {
	if len(ts) != len(ps) {
		return nil, fmt.Errorf("%w: %d times but %d values", ErrInvalidSeries, len(ts), len(ps))
	}
	s := make(Series, len(ts))
	for i := range ts {
		s[i] = Observation{T: ts[i], P: ps[i]}
	}
	return s, nil
}
