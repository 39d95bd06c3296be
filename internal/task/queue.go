package task

import (
	"sync"
)

// Queue collects completion callbacks posted from worker goroutines so they
// run on the goroutine that drains it, once per scheduler tick.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Post(f func()) {
	q.mu.Lock()
	q.pending = append(q.pending, f)
	q.mu.Unlock()
}

// Drain runs every callback posted so far, in post order, and returns how
// many ran. Callbacks posted while draining run on the next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, f := range pending {
		f()
	}
	return len(pending)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
