// Package history keeps the bounded time series consumed by presentation.
package history

import (
	"sync"

	"github.com/gammazero/deque"
)

// Ring is a fixed capacity FIFO. Once full, every push evicts the oldest item.
// Insertion order is chronological order.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    *deque.Deque[T]
	capacity int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &Ring[T]{
		items:    deque.New[T](),
		capacity: capacity,
	}
}

func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.items.Len() >= r.capacity {
		r.items.PopFront()
	}
	r.items.PushBack(item)
}

func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.items.Len()
}

func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// All returns a copy of every item, oldest first.
func (r *Ring[T]) All() []T {
	return r.Recent(0)
}

// Recent returns a copy of the n newest items, oldest first. n <= 0 returns everything.
func (r *Ring[T]) Recent(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := r.items.Len()
	if n <= 0 || n > count {
		n = count
	}

	out := make([]T, 0, n)
	for i := count - n; i < count; i++ {
		out = append(out, r.items.At(i))
	}
	return out
}

// Last returns the newest item.
func (r *Ring[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return r.items.Back(), true
}

func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items.Clear()
}
