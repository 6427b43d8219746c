package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher hands a job off for delivery after the intake response is written.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *Job) error
}

// Runner delivers a job on every channel.
type Runner interface {
	Run(ctx context.Context, job *Job) Report
}

// AsyncDispatcher runs each job on its own goroutine, detached from the request
// context, and tracks it so shutdown can drain in-flight deliveries.
type AsyncDispatcher struct {
	runner  Runner
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(runner Runner, timeout time.Duration, logger *zap.Logger) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncDispatcher{runner: runner, timeout: timeout, logger: logger}
}

func (d *AsyncDispatcher) Dispatch(_ context.Context, job *Job) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("💥 fan-out panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.runner.Run(ctx, job)
	}()
	return nil
}

// Shutdown stops accepting jobs and waits for running ones until ctx ends.
func (d *AsyncDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
