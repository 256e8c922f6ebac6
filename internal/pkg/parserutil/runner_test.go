package parserutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_WaitsAndReportsErrors(t *testing.T) {
	var ran atomic.Int32
	var mu sync.Mutex
	var failed []string

	done := Run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, s string) error {
		ran.Add(1)
		if s == "b" {
			return errors.New("boom")
		}
		return nil
	}, RunOptions[string]{
		Name: func(s string) string { return s },
		OnError: func(s string, err error) {
			mu.Lock()
			failed = append(failed, s)
			mu.Unlock()
		},
		WaitForCompletion: true,
	})

	select {
	case <-done:
	default:
		t.Fatal("done must be closed when WaitForCompletion is set")
	}
	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, []string{"b"}, failed)
}

func TestRun_AsyncAndCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var reported atomic.Int32

	done := Run(ctx, []int{1, 2}, func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}, RunOptions[int]{OnError: func(int, error) { reported.Add(1) }})

	select {
	case <-done:
		t.Fatal("tasks are still blocked")
	case <-time.After(10 * time.Millisecond):
	}
	cancel()
	<-done
	assert.Equal(t, int32(0), reported.Load(), "errors after cancellation are not reported")
}

func TestRun_NoItems(t *testing.T) {
	<-Run(context.Background(), nil, func(context.Context, int) error { return nil }, RunOptions[int]{})
}
