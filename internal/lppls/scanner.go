package lppls

import (
	"context"
	"fmt"
	"math/rand/v2"

	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/workerpool"
)

// ScanParams configures a nested window scan.
type ScanParams struct {
	// WindowSize is the length of the sliding outer window.
	WindowSize int
	// SmallestWindowSize is the exclusive lower bound of inner window lengths.
	SmallestWindowSize int
	// OuterIncrement is the step between outer window starts.
	OuterIncrement int
	// InnerIncrement is the step by which inner windows shrink from the left.
	InnerIncrement int
	// Parallel dispatches outer windows to a worker pool.
	Parallel bool
	// Workers bounds the pool size; 0 uses GOMAXPROCS.
	Workers int
	// Seed makes the scan reproducible. 0 draws a random seed.
	Seed uint64
}

// DefaultScanParams returns the customary 80/20 window with 5/2 increments.
func DefaultScanParams() ScanParams {
	return ScanParams{
		WindowSize:         80,
		SmallestWindowSize: 20,
		OuterIncrement:     5,
		InnerIncrement:     2,
	}
}

// Validate checks the params against a series of n observations.
func (p ScanParams) Validate(n int) error {
	switch {
	case p.WindowSize <= 0:
		return fmt.Errorf("%w: window_size must be positive", model.ErrInvalidScanParams)
	case p.SmallestWindowSize <= 0:
		return fmt.Errorf("%w: smallest_window_size must be positive", model.ErrInvalidScanParams)
	case p.SmallestWindowSize >= p.WindowSize:
		return fmt.Errorf("%w: smallest_window_size %d must be less than window_size %d",
			model.ErrInvalidScanParams, p.SmallestWindowSize, p.WindowSize)
	case p.OuterIncrement <= 0:
		return fmt.Errorf("%w: outer_increment must be positive", model.ErrInvalidScanParams)
	case p.InnerIncrement <= 0:
		return fmt.Errorf("%w: inner_increment must be positive", model.ErrInvalidScanParams)
	case p.WindowSize > n:
		return fmt.Errorf("%w: window_size %d exceeds series length %d",
			model.ErrInvalidScanParams, p.WindowSize, n)
	case p.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", model.ErrInvalidScanParams)
	}
	return nil
}

// OuterStarts returns the start index of every outer window over n observations.
func (p ScanParams) OuterStarts(n int) []int {
	var starts []int
	for i := 0; i <= n-p.WindowSize; i += p.OuterIncrement {
		starts = append(starts, i)
	}
	return starts
}

// InnerOffsets returns the left offsets of the inner windows within an outer window.
func (p ScanParams) InnerOffsets() []int {
	var offsets []int
	for j := 0; j < p.WindowSize-p.SmallestWindowSize; j += p.InnerIncrement {
		offsets = append(offsets, j)
	}
	return offsets
}

// WindowSizes returns the inner window lengths matching InnerOffsets.
func (p ScanParams) WindowSizes() []int {
	offsets := p.InnerOffsets()
	sizes := make([]int, len(offsets))
	for k, j := range offsets {
		sizes[k] = p.WindowSize - j
	}
	return sizes
}

// Scanner fits every inner window of every outer window of a series.
type Scanner struct {
	Fitter *Fitter
}

// NewScanner creates a Scanner using f for each window.
func NewScanner(f *Fitter) *Scanner {
	return &Scanner{Fitter: f}
}

type outerWindow struct {
	start  int
	window model.Series
}

// Scan runs the nested window fit. Groups in the result follow the outer
// window order whether or not the scan runs in parallel, and each outer
// window draws from its own random stream derived from params.Seed, so a
// seeded scan gives the same result either way.
//
// Windows without a successful fit are kept as not-found records. Any other
// failure aborts the whole scan and no result is returned.
func (s *Scanner) Scan(ctx context.Context, series model.Series, params ScanParams) (*model.ScanResult, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(len(series)); err != nil {
		return nil, err
	}
	seed := params.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	starts := params.OuterStarts(len(series))
	outers := make([]outerWindow, len(starts))
	for k, i := range starts {
		end := i + params.WindowSize
		outers[k] = outerWindow{start: i, window: series[i:end:end]}
	}
	offsets := params.InnerOffsets()

	unit := func(ctx context.Context, idx int, o outerWindow) (model.WindowGroup, error) {
		rng := rand.New(rand.NewPCG(seed, uint64(idx)))
		return s.fitNested(ctx, idx, o.window, offsets, rng)
	}

	var groups []model.WindowGroup
	if params.Parallel {
		var err error
		groups, err = workerpool.Map(ctx, params.Workers, outers, unit)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
	} else {
		groups = make([]model.WindowGroup, len(outers))
		for idx, o := range outers {
			g, err := unit(ctx, idx, o)
			if err != nil {
				return nil, fmt.Errorf("scan: unit %d: %w", idx, err)
			}
			groups[idx] = g
		}
	}

	return &model.ScanResult{
		WindowSizes: params.WindowSizes(),
		Groups:      groups,
	}, nil
}

// fitNested fits the shrinking sub-windows of one outer window in order.
func (s *Scanner) fitNested(ctx context.Context, idx int, outer model.Series, offsets []int, rng *rand.Rand) (model.WindowGroup, error) {
	g := model.WindowGroup{
		Index: idx,
		T1:    outer.First().T,
		T2:    outer.Last().T,
		P2:    outer.Last().P,
		Fits:  make([]model.FitRecord, 0, len(offsets)),
	}
	for _, j := range offsets {
		rec, err := s.Fitter.Fit(ctx, outer[j:], rng)
		if err != nil {
			return model.WindowGroup{}, fmt.Errorf("outer window ending %v, offset %d: %w", g.T2, j, err)
		}
		g.Fits = append(g.Fits, rec)
	}
	return g, nil
}
