// Package task provides the futures returned by long running chart operations
// and the queue their results are applied through.
package task

import (
	"context"
	"sync"
)

// Task is the handle of one asynchronous operation.
type Task struct {
	done       chan struct{}
	once       sync.Once
	err        error
	superseded bool
}

func New() *Task {
	return &Task{done: make(chan struct{})}
}

// Completed returns a task that is already finished with err.
func Completed(err error) *Task {
	t := New()
	t.Finish(err)
	return t
}

// Finish completes the task. Only the first call has an effect.
func (t *Task) Finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Supersede completes the task without a result because a newer operation
// replaced it.
func (t *Task) Supersede() {
	t.once.Do(func() {
		t.superseded = true
		close(t.done)
	})
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the result of a finished task, nil while running or when
// superseded.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Superseded reports whether the task was discarded in favour of a newer one.
func (t *Task) Superseded() bool {
	select {
	case <-t.done:
		return t.superseded
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
