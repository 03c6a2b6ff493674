package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 0, 3, 2}

	got, err := Map(context.Background(), 3, items, func(_ context.Context, i int, item int) (int, error) {
		// Later items finish first.
		time.Sleep(time.Duration(item) * time.Millisecond)
		return item * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 0, 30, 20}, got)
}

func TestMap_RespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), 2, items, func(context.Context, int, int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMap_FirstErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32
	items := make([]int, 50)

	got, err := Map(context.Background(), 1, items, func(ctx context.Context, i int, _ int) (int, error) {
		started.Add(1)
		if i == 3 {
			return 0, boom
		}
		return i, ctx.Err()
	})

	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
	assert.Less(t, started.Load(), int32(50))
}

func TestMap_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Map(ctx, 4, []int{1, 2, 3}, func(ctx context.Context, _ int, item int) (int, error) {
		return item, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), 0, []string{}, func(context.Context, int, string) (string, error) {
		return "", errors.New("not called")
	})

	require.NoError(t, err)
	assert.Empty(t, got)
}
