// Package mirror implements the best-effort secondary write path: every
// durable write has one synchronous local primary and up to two mirrors
// (object storage, document database) whose failures are swallowed. Mirror
// unavailability must never block trading work.
package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one independent mirror write.
type Task struct {
	Name  string
	Write func(ctx context.Context) error
}

// Fanout dispatches mirror writes concurrently, joins them under a bounded
// timeout, and logs individual failures without ever surfacing them.
type Fanout struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFanout constructs a fanout writer. A non-positive timeout falls back to
// 750ms, the evidence-store hot-path bound.
func NewFanout(timeout time.Duration, logger zerolog.Logger) *Fanout {
	if timeout <= 0 {
		timeout = 750 * time.Millisecond
	}
	return &Fanout{
		timeout: timeout,
		logger:  logger.With().Str("component", "mirror_fanout").Logger(),
	}
}

// Dispatch runs every task concurrently and waits at most the configured
// timeout. Errors and timeouts are logged as side notes only.
func (f *Fanout) Dispatch(ctx context.Context, tasks ...Task) {
	runnable := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Write != nil {
			runnable = append(runnable, task)
		}
	}
	if len(runnable) == 0 {
		return
	}

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, task := range runnable {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			if err := task.Write(taskCtx); err != nil {
				f.logger.Warn().Err(err).Str("mirror", task.Name).Msg("mirror write dropped")
			}
		}(task)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-taskCtx.Done():
		f.logger.Warn().Dur("timeout", f.timeout).Msg("mirror writes timed out")
	}
}
