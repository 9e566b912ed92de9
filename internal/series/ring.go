// Package series provides fixed-capacity streaming histories.
//
// Every structure here has a constant memory footprint: once full, each
// push overwrites the oldest element. Index 0 is always the oldest stored
// element. None of the types are safe for concurrent use.
package series

// Ring is a fixed-capacity circular buffer of T.
type Ring[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int
}

// NewRing creates a ring holding at most capacity elements.
// A capacity below 1 is treated as 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, overwriting and returning the evicted oldest element when full.
func (r *Ring[T]) Push(v T) (evicted T, overwrote bool) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return evicted, false
	}
	evicted = r.buf[r.head]
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return evicted, true
}

// At returns the i-th oldest element. ok is false when i is out of range.
func (r *Ring[T]) At(i int) (v T, ok bool) {
	if i < 0 || i >= r.count {
		return v, false
	}
	return r.buf[(r.head+i)%len(r.buf)], true
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (v T, ok bool) {
	return r.At(r.count - 1)
}

// Oldest returns the oldest stored element.
func (r *Ring[T]) Oldest() (v T, ok bool) {
	return r.At(0)
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Full reports whether the ring holds Cap elements.
func (r *Ring[T]) Full() bool { return r.count == len(r.buf) }

// Items appends the stored elements, oldest first, to dst and returns it.
func (r *Ring[T]) Items(dst []T) []T {
	for i := 0; i < r.count; i++ {
		dst = append(dst, r.buf[(r.head+i)%len(r.buf)])
	}
	return dst
}

// Reset empties the ring without releasing its storage.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.count = 0
}
