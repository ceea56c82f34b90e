// Package tasks runs fire-and-forget side effects off the request path.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner executes detached tasks on a bounded set of goroutines. Task errors
// and panics are logged at the task boundary and never reach the submitter.
type Runner struct {
	logger  *slog.Logger
	sem     chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewRunner creates a runner allowing up to limit concurrent tasks. Each task
// gets its own context with the given timeout; zero means no timeout.
func NewRunner(limit int, timeout time.Duration, logger *slog.Logger) *Runner {
	if limit <= 0 {
		limit = 16
	}
	return &Runner{
		logger:  logger,
		sem:     make(chan struct{}, limit),
		timeout: timeout,
	}
}

// Go schedules fn on the runner. It never blocks the caller beyond waiting for
// a free slot and reports nothing back; after Shutdown it drops the task with
// a log line.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("task dropped, runner shut down", "task", name)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()

		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("task panicked", "task", name, "panic", rec)
			}
		}()
		if err := fn(ctx); err != nil {
			r.logger.Error("task failed", "task", name, "error", err)
		}
	}()
}

// Shutdown stops accepting tasks and waits for in-flight ones to finish, up
// to the context deadline.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
