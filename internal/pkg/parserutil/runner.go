package parserutil

import (
	"context"
	"log/slog"
	"sync"
)

// TaskFunc runs one unit of work for an item.
type TaskFunc[T any] func(ctx context.Context, item T) error

// RunOptions configures how tasks are run (always async/non-blocking)
type RunOptions[T any] struct {
	// Name identifies an item in logs. If nil, items are logged by index.
	Name func(item T) string
	// LogStart logs when each task starts
	LogStart bool
	// OnError is called when a task returns an error. If nil, errors are logged.
	OnError func(item T, err error)
	// WaitForCompletion when true blocks until all tasks finish.
	// When false, Run returns immediately; the returned channel is closed once every task is done.
	WaitForCompletion bool
}

// Run starts one goroutine per item and returns a channel closed after the last one finishes.
func Run[T any](ctx context.Context, items []T, fn TaskFunc[T], opts RunOptions[T]) <-chan struct{} {
	done := make(chan struct{})
	if len(items) == 0 {
		close(done)
		return done
	}

	name := opts.Name
	if name == nil {
		name = func(T) string { return "" }
	}

	// Default error handler logs errors
	onError := opts.OnError
	if onError == nil {
		onError = func(item T, err error) {
			slog.Error("Task failed", "task", name(item), "error", err)
		}
	}

	var wg sync.WaitGroup
	for _, item := range items {
		item := item
		wg.Add(1)
		go func() {
			defer wg.Done()

			if opts.LogStart {
				slog.Debug("Starting task", "task", name(item))
			}

			if err := fn(ctx, item); err != nil && ctx.Err() == nil {
				// Error occurred but context is still valid
				onError(item, err)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	if opts.WaitForCompletion {
		<-done
	}
	return done
}
