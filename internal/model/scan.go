package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScanParams is returned when nested window parameters are inconsistent.
	ErrInvalidScanParams = errors.New("invalid scan parameters")
	// ErrNotInResult is returned by ScanResult.Lookup for unknown keys.
	ErrNotInResult = errors.New("key not in scan result")
)

// WindowGroup holds the shrinking-window fits of one outer window.
type WindowGroup struct {
	Index int     // outer window position, 0-based
	T1    float64 // first time of the outer window
	T2    float64 // last time of the outer window
	P2    float64 // last value of the outer window
	Fits  []FitRecord
}

// ScanResult is the time-indexed population of nested window fits.
//
// Groups are ordered by outer window position; Fits inside each group are
// ordered by WindowSizes, i.e. by decreasing sub-window length.
type ScanResult struct {
	WindowSizes []int
	Groups      []WindowGroup
}

// Times returns the outer window end times in group order.
func (r *ScanResult) Times() []float64 {
	ts := make([]float64, len(r.Groups))
	for i, g := range r.Groups {
		ts[i] = g.T2
	}
	return ts
}

// Group returns the group whose outer window ends at t2.
func (r *ScanResult) Group(t2 float64) (*WindowGroup, bool) {
	for i := range r.Groups {
		if r.Groups[i].T2 == t2 {
			return &r.Groups[i], true
		}
	}
	return nil, false
}

// Record returns the fit for the outer window ending at t2 and the given sub-window size.
func (r *ScanResult) Record(t2 float64, windowSize int) (FitRecord, error) {
	g, ok := r.Group(t2)
	if !ok {
		return FitRecord{}, fmt.Errorf("%w: t2=%v", ErrNotInResult, t2)
	}
	for k, size := range r.WindowSizes {
		if size == windowSize {
			return g.Fits[k], nil
		}
	}
	return FitRecord{}, fmt.Errorf("%w: window size %d", ErrNotInResult, windowSize)
}

// Lookup addresses a single value by (outer end time, sub-window size, field name).
func (r *ScanResult) Lookup(t2 float64, windowSize int, field string) (float64, error) {
	rec, err := r.Record(t2, windowSize)
	if err != nil {
		return 0, err
	}
	v, ok := rec.Field(field)
	if !ok {
		return 0, fmt.Errorf("%w: field %q", ErrNotInResult, field)
	}
	return v, nil
}

// FittedCount returns the number of successful fits across all groups.
func (r *ScanResult) FittedCount() int {
	n := 0
	for _, g := range r.Groups {
		for _, f := range g.Fits {
			if f.Fitted {
				n++
			}
		}
	}
	return n
}

// Total returns the number of fit records across all groups.
func (r *ScanResult) Total() int {
	return len(r.Groups) * len(r.WindowSizes)
}
