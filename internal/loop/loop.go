// Package loop provides the single cooperative scheduler that owns every
// write to the state tree.
package loop

import (
	"context"
	"errors"
)

// ErrStopped is returned by Do when the loop exits before running the task.
var ErrStopped = errors.New("loop: stopped")

// Dispatcher runs functions on the scheduler and waits for them.
type Dispatcher interface {
	Do(ctx context.Context, fn func()) error
}

// Loop executes queued tasks one at a time, in submission order.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// New creates a loop with the given queue capacity.
func New(queue int) *Loop {
	return &Loop{
		tasks: make(chan func(), queue),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. A panicking task is not
// recovered: it signals a programming error.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn without waiting for it to run.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do queues fn and blocks until it has run. It must not be called from a
// task running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may have been dequeued just before the loop stopped.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
