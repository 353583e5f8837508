// Package worker runs independent pipeline tasks (one per run) with bounded
// concurrency. The first failure cancels the remaining tasks.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
)

// Task is one unit of work, named for logging.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Run executes tasks on up to workers goroutines. Tasks still queued when a
// task fails (or ctx is cancelled) are skipped; the first error is returned.
func Run(ctx context.Context, workers int, tasks []Task) error {
	if workers < 1 {
		workers = 1
	}
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskChan := make(chan Task)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			logger := ctxlog.FromContext(ctx).With("workerID", workerID)
			logger.Debug("Worker started.")

			for task := range taskChan {
				if ctx.Err() != nil {
					logger.Debug("Skipping task after cancellation.", "task", task.Name)
					continue
				}

				logger.Debug("Worker picked up task.", "task", task.Name)
				if err := task.Fn(ctx); err != nil {
					logger.Error("Task failed.", "task", task.Name, "error", err)
					errOnce.Do(func() {
						firstErr = fmt.Errorf("task %s: %w", task.Name, err)
					})
					cancel()
					continue
				}
				logger.Debug("Task finished.", "task", task.Name)
			}
			logger.Debug("Worker finished.")
		}(id)
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
