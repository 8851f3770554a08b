package sync

import (
	"context"
	gosync "sync"
)

// queue is an unbounded FIFO. Push never blocks, so connectivity and
// alarm goroutines can hand work over without waiting on a sync.
type queue[T any] struct {
	mu     gosync.Mutex
	items  []T
	notify chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{notify: make(chan struct{}, 1)}
}

func (q *queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop blocks until an item is available or ctx is done.
func (q *queue[T]) Pop(ctx context.Context) (T, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()

			// Wake another consumer for the rest.
			if more {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-q.notify:
		}
	}
}

func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// activity counts outstanding work so callers can wait for the service
// to go idle.
type activity struct {
	mu   gosync.Mutex
	n    int
	idle chan struct{}
}

func newActivity() *activity {
	idle := make(chan struct{})
	close(idle)
	return &activity{idle: idle}
}

func (a *activity) add() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.n == 0 {
		a.idle = make(chan struct{})
	}
	a.n++
}

func (a *activity) done() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.n == 0 {
		return
	}
	a.n--
	if a.n == 0 {
		close(a.idle)
	}
}

// wait blocks until no work is outstanding or ctx is done.
func (a *activity) wait(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
