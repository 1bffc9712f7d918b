package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapOrdersResults(t *testing.T) {
	inputs := []int{1, 2, 3, 4, 5}
	results := Map(context.Background(), 3, inputs, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})

	require.Len(t, results, 5)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, inputs[i]*inputs[i], r.Value)
	}
}

func TestMapEmptyInputs(t *testing.T) {
	results := Map(context.Background(), 4, nil, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	assert.Empty(t, results)
}

func TestMapPerInputErrors(t *testing.T) {
	boom := errors.New("boom")
	results := Map(context.Background(), 2, []int{1, 2, 3}, func(_ context.Context, n int) (string, error) {
		if n == 2 {
			return "", boom
		}
		return fmt.Sprintf("ok-%d", n), nil
	})

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "ok-3", results[2].Value)
}

func TestMapBoundsConcurrency(t *testing.T) {
	const workers = 3
	var inFlight, peak atomic.Int32

	inputs := make([]int, 24)
	Map(context.Background(), workers, inputs, func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return n, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestMapClampsWorkerCount(t *testing.T) {
	// More workers than inputs and non-positive worker counts both
	// degrade gracefully.
	results := Map(context.Background(), 50, []int{1, 2}, func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Value)

	results = Map(context.Background(), 0, []int{1, 2}, func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	})
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[1].Value)
}

func TestMapCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Map(ctx, 2, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	assert.Zero(t, calls.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
