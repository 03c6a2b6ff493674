// Package workerpool runs independent units of work on a bounded number of
// goroutines and returns their results in input order.
package workerpool

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item using at most workers goroutines and returns
// the results indexed like items, regardless of completion order.
//
// The first error cancels the context passed to the remaining units, stops
// dispatching new ones and is returned; no partial results are returned.
// workers <= 0 uses GOMAXPROCS.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	dispatched := 0
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error {
			r, err := fn(gctx, i, item)
			if err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A parent cancellation may stop dispatch without any unit failing.
	if dispatched < len(items) {
		return nil, ctx.Err()
	}
	return results, nil
}
