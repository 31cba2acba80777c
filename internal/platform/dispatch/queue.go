// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package dispatch delivers events to subscribers asynchronously and in order.
package dispatch

import "sync"

// Queue is an unbounded FIFO fanned out to subscribers by Run. Items pushed
// before the first subscriber are held until one registers.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	subs    map[int]func(T)
	nextSub int
	closed  bool
}

// New returns an open queue. Call Run on a dedicated goroutine.
func New[T any]() *Queue[T] {
	q := &Queue[T]{subs: make(map[int]func(T))}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues v. It reports false once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.cond.Broadcast()
	return true
}

// Subscribe registers fn. The returned cancel func is idempotent.
func (q *Queue[T]) Subscribe(fn func(T)) (cancel func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.cond.Broadcast()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			delete(q.subs, id)
		})
	}
}

// Drain discards queued items that have not been handed to Run yet and
// returns how many were dropped. Subscriptions are left in place.
func (q *Queue[T]) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Close drops pending items and makes Run return. It does not wait, so it is
// safe to call from inside a subscriber.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}

// Closed reports whether Close was called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Run delivers items until Close. Subscribers are called without the queue
// lock held, one item at a time.
func (q *Queue[T]) Run() {
	for {
		q.mu.Lock()
		for !q.closed && (len(q.items) == 0 || len(q.subs) == 0) {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		v := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		fns := make([]func(T), 0, len(q.subs))
		for _, fn := range q.subs {
			fns = append(fns, fn)
		}
		q.mu.Unlock()

		for _, fn := range fns {
			fn(v)
		}
	}
}
