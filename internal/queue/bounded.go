// Package queue provides the bounded FIFO queues connecting pipeline
// stages. Back-pressure is the sole flow-control mechanism: a producer
// blocks when its queue is full, and blocks only on its own queue, so a
// slow consumer never stalls the sibling pipeline.
package queue

import (
	"sync"
)

// Bounded is a thread-safe bounded FIFO. Each instance is used by one
// producer / one consumer pair. Push blocks while full, Pop blocks while
// empty; Close wakes every waiter and makes both return immediately. The
// queue never fails, it only blocks or drains.
type Bounded[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items    []T
	capacity int
	closed   bool

	// release frees resources owned by discarded items (Clear, Close).
	release func(T)
}

// NewBounded creates a queue with the given capacity. release may be nil.
func NewBounded[T any](capacity int, release func(T)) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Bounded[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		release:  release,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends item, blocking while the queue is full. It returns false
// without enqueuing if the queue was closed, which is how a producer
// observes shutdown promptly mid-wait.
func (q *Bounded[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) >= q.capacity && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return false
	}

	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return true
}

// Pop removes and returns the head, blocking while the queue is empty.
// It returns the zero value and false if the queue was closed.
func (q *Bounded[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, true
}

// TryPop removes and returns the head without blocking.
func (q *Bounded[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, true
}

// Peek returns the head without removing it.
func (q *Bounded[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// DropWhile removes head items for which pred holds, up to max, releasing
// each. It returns the number dropped. Used by the sync controller to
// catch up after persistent lag.
func (q *Bounded[T]) DropWhile(pred func(T) bool, max int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := 0
	for len(q.items) > 0 && dropped < max && pred(q.items[0]) {
		if q.release != nil {
			q.release(q.items[0])
		}
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		dropped++
	}
	if dropped > 0 {
		q.notFull.Broadcast()
	}
	return dropped
}

// Clear discards all queued items and releases their resources. Waiting
// producers wake up and refill.
func (q *Bounded[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.release != nil {
		for _, item := range q.items {
			q.release(item)
		}
	}
	q.items = q.items[:0]
	q.notFull.Broadcast()
}

// Len returns the current depth.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the capacity.
func (q *Bounded[T]) Cap() int {
	return q.capacity
}

// Close tears the queue down: remaining items are released, and every
// blocked Push/Pop returns immediately.
func (q *Bounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	if q.release != nil {
		for _, item := range q.items {
			q.release(item)
		}
	}
	q.items = q.items[:0]

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Closed reports whether the queue has been torn down.
func (q *Bounded[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Wake unblocks all waiters without closing, so they can re-check
// external state such as a cleared running flag.
func (q *Bounded[T]) Wake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}
