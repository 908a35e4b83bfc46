package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, 8, discardLogger())
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(func() { ran.Add(1) }))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}

func TestPool_RejectsWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1, discardLogger())
	block := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-block }))

	// The worker is busy; fill the single queue slot, then overflow.
	var errs int
	for i := 0; i < 10; i++ {
		if err := p.Submit(func() {}); err != nil {
			assert.ErrorIs(t, err, ErrQueueFull)
			errs++
		}
	}
	assert.Greater(t, errs, 0)

	close(block)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_RejectsAfterShutdown(t *testing.T) {
	p := NewPool(1, 4, discardLogger())
	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestPool_ShutdownDrainsInFlightWork(t *testing.T) {
	p := NewPool(1, 4, discardLogger())
	var done atomic.Bool
	require.NoError(t, p.Submit(func() {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
	}))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, done.Load())
}

func TestPool_ShutdownHonorsContextDeadline(t *testing.T) {
	p := NewPool(1, 4, discardLogger())
	block := make(chan struct{})
	defer close(block)
	require.NoError(t, p.Submit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}

func TestPool_RecoversFromPanickingTask(t *testing.T) {
	p := NewPool(1, 4, discardLogger())
	var ran atomic.Bool
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { ran.Store(true) }))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}
