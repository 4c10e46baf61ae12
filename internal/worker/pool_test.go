package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	wp := NewWorkerPool("test-run", 3, 16, zap.NewNop())
	wp.Start()

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, wp.Submit(func(ctx context.Context) { n.Add(1) }))
	}

	wp.Stop(context.Background())
	assert.Equal(t, int32(10), n.Load())
}

func TestWorkerPoolSubmitNeverBlocks(t *testing.T) {
	wp := NewWorkerPool("test-full", 1, 1, zap.NewNop())
	wp.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, wp.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.True(t, wp.Submit(func(ctx context.Context) {}))
	assert.False(t, wp.Submit(func(ctx context.Context) {}), "queue is full")

	close(release)
	wp.Stop(context.Background())
	assert.False(t, wp.Submit(func(ctx context.Context) {}), "pool is stopped")
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	wp := NewWorkerPool("test-panic", 1, 4, zap.NewNop())
	wp.Start()

	var ran atomic.Bool
	require.True(t, wp.Submit(func(ctx context.Context) { panic("boom") }))
	require.True(t, wp.Submit(func(ctx context.Context) { ran.Store(true) }))

	wp.Stop(context.Background())
	assert.True(t, ran.Load())
}

func TestWorkerPoolStopCancelsSlowJobs(t *testing.T) {
	wp := NewWorkerPool("test-cancel", 1, 1, zap.NewNop())
	wp.Start()

	cancelled := make(chan struct{})
	require.True(t, wp.Submit(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	wp.Stop(ctx)

	select {
	case <-cancelled:
	default:
		t.Fatal("job context was not cancelled")
	}
}
