package types

import "sync"

// Deque is a thread-safe double-ended queue backed by a slice.
// It preserves insertion order.
type Deque[T any] struct {
	mu   sync.Mutex
	data []T
}

// Append adds the element to the end of the deque and returns the new length.
func (d *Deque[T]) Append(item T) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = append(d.data, item)
	return len(d.data)
}

// PeekFirst returns the element at the front of the deque without removing it.
func (d *Deque[T]) PeekFirst() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.data) == 0 {
		var zero T
		return zero, false
	}
	return d.data[0], true
}

// PopFirst removes and returns the element from the front of the deque.
// The second return value is false when the deque is empty.
func (d *Deque[T]) PopFirst() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var zero T
	if len(d.data) == 0 {
		return zero, false
	}

	item := d.data[0]
	d.data[0] = zero
	d.data = d.data[1:]
	if len(d.data) == 0 {
		d.data = nil
	}
	return item, true
}

// PopFirstIf removes the front element while pred reports true for it.
// It returns the number of removed elements.
func (d *Deque[T]) PopFirstIf(pred func(T) bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		zero T
		n    int
	)
	for len(d.data) > 0 && pred(d.data[0]) {
		d.data[0] = zero
		d.data = d.data[1:]
		n++
	}
	if len(d.data) == 0 {
		d.data = nil
	}
	return n
}

// ScanLast walks the deque from the back and returns the first element fn reports true for.
// The fn runs under the deque lock and must not call back into the deque.
func (d *Deque[T]) ScanLast(fn func(T) bool) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := len(d.data) - 1; i >= 0; i-- {
		if fn(d.data[i]) {
			return d.data[i], true
		}
	}
	var zero T
	return zero, false
}

// Drain returns all buffered elements in FIFO order and clears the deque.
func (d *Deque[T]) Drain() []T {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.data
	d.data = nil
	return out
}

// Len returns the current number of elements in the deque.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}

// IsEmpty reports whether the deque has no elements.
func (d *Deque[T]) IsEmpty() bool {
	return d.Len() == 0
}
