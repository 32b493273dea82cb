package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Runner executes fire-and-forget jobs. Each job gets its own goroutine
// and a fresh background context so it outlives the HTTP request that
// scheduled it; Wait blocks until every scheduled job has returned.
type Runner struct {
	logger *log.Logger
	wg     sync.WaitGroup
}

// NewRunner builds a runner.
func NewRunner(logger *log.Logger) *Runner {
	return &Runner{logger: logger}
}

// Go schedules fn on its own goroutine. Errors are logged, not returned:
// job outcomes are read back from the transfer row, never from the
// scheduler. A panicking job is recovered so it cannot take the process
// down.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("job panicked", "job", name, "panic", rec)
			}
		}()

		if err := fn(context.Background()); err != nil {
			r.logger.Error("job failed", "job", name, "error", err)
		}
	}()
}

// Wait blocks until all scheduled jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
