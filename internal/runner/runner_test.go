package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunPreservesOrder(t *testing.T) {
	r := New(Config{Workers: 4})
	out := make([]int, 50)
	err := r.Run(context.Background(), len(out), func(_ context.Context, i int) {
		time.Sleep(time.Duration(50-i) * 100 * time.Microsecond)
		out[i] = i * i
	})
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	r := New(Config{Workers: 3})
	var inFlight, peak atomic.Int32
	err := r.Run(context.Background(), 20, func(_ context.Context, _ int) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunZeroWorkersIsSequential(t *testing.T) {
	r := New(Config{})
	assert.Equal(t, 1, r.Workers())

	var order []int
	require.NoError(t, r.Run(context.Background(), 5, func(_ context.Context, i int) {
		order = append(order, i)
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRunStopsSchedulingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(Config{Workers: 1})
	var ran atomic.Int32
	err := r.Run(ctx, 10, func(_ context.Context, i int) {
		ran.Add(1)
		if i == 2 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, ran.Load(), int32(10))
}

func TestRunRateLimited(t *testing.T) {
	r := New(Config{Workers: 2, RateLimit: 100})
	start := time.Now()
	require.NoError(t, r.Run(context.Background(), 5, func(context.Context, int) {}))
	// burst of 1 at 100/s: four waits of ~10ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
