package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesAllTasks(t *testing.T) {
	var count atomic.Int32
	tasks := []Task{
		{Name: "a", Fn: func(ctx context.Context) error { count.Add(1); return nil }},
		{Name: "b", Fn: func(ctx context.Context) error { count.Add(1); return nil }},
		{Name: "c", Fn: func(ctx context.Context) error { count.Add(1); return nil }},
	}

	require.NoError(t, Run(context.Background(), 2, tasks))
	assert.Equal(t, int32(3), count.Load())
}

func TestRunNoTasks(t *testing.T) {
	require.NoError(t, Run(context.Background(), 4, nil))
}

func TestRunClampsWorkerCount(t *testing.T) {
	ran := false
	tasks := []Task{{Name: "only", Fn: func(ctx context.Context) error { ran = true; return nil }}}
	require.NoError(t, Run(context.Background(), 0, tasks))
	assert.True(t, ran)
}

func TestRunReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task{
		{Name: "ok", Fn: func(ctx context.Context) error { return nil }},
		{Name: "bad", Fn: func(ctx context.Context) error { return boom }},
	}

	err := Run(context.Background(), 1, tasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task bad")
}

func TestRunSkipsQueuedTasksAfterFailure(t *testing.T) {
	var ran atomic.Int32
	tasks := []Task{
		{Name: "bad", Fn: func(ctx context.Context) error { return errors.New("boom") }},
		{Name: "later-1", Fn: func(ctx context.Context) error { ran.Add(1); return nil }},
		{Name: "later-2", Fn: func(ctx context.Context) error { ran.Add(1); return nil }},
	}

	err := Run(context.Background(), 1, tasks)
	require.Error(t, err)
	assert.Equal(t, int32(0), ran.Load(), "tasks queued after the failure are skipped")
}

func TestRunBoundsConcurrency(t *testing.T) {
	const workers = 2

	var mu sync.Mutex
	running, peak := 0, 0

	task := func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}

	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{Name: "t", Fn: task}
	}

	require.NoError(t, Run(context.Background(), workers, tasks))
	assert.LessOrEqual(t, peak, workers)
	assert.Greater(t, peak, 0)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	tasks := []Task{{Name: "t", Fn: func(ctx context.Context) error { ran = true; return nil }}}

	err := Run(ctx, 1, tasks)
	require.Error(t, err)
	assert.False(t, ran)
}
