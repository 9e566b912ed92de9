package series

// Window is a fixed-capacity history of float64 samples with an O(1)
// running sum. It backs every scalar history in the engine.
type Window struct {
	ring   *Ring[float64]
	sum    float64
	pushes int
}

// NewWindow creates a window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	return &Window{ring: NewRing[float64](capacity)}
}

// Push appends x in O(1), evicting the oldest sample when full.
func (w *Window) Push(x float64) {
	evicted, overwrote := w.ring.Push(x)
	w.sum += x
	if overwrote {
		w.sum -= evicted
	}

	// Re-sum once per full rotation so float drift stays bounded.
	w.pushes++
	if w.pushes >= w.ring.Cap() {
		w.pushes = 0
		w.resum()
	}
}

func (w *Window) resum() {
	s := 0.0
	for i := 0; i < w.ring.Len(); i++ {
		v, _ := w.ring.At(i)
		s += v
	}
	w.sum = s
}

// At returns the i-th oldest sample, or 0 when i is out of range.
func (w *Window) At(i int) float64 {
	v, _ := w.ring.At(i)
	return v
}

// FromEnd returns the sample k steps before the newest (k=0 is newest),
// or 0 when out of range.
func (w *Window) FromEnd(k int) float64 {
	return w.At(w.ring.Len() - 1 - k)
}

// Newest returns the most recent sample, or 0 when empty.
func (w *Window) Newest() float64 {
	v, _ := w.ring.Newest()
	return v
}

// Oldest returns the oldest stored sample, or 0 when empty.
func (w *Window) Oldest() float64 {
	v, _ := w.ring.Oldest()
	return v
}

// Sum returns the running sum of stored samples.
func (w *Window) Sum() float64 { return w.sum }

// Average returns the mean of stored samples, or 0 when empty.
func (w *Window) Average() float64 {
	if w.ring.Len() == 0 {
		return 0
	}
	return w.sum / float64(w.ring.Len())
}

// Len returns the number of stored samples.
func (w *Window) Len() int { return w.ring.Len() }

// Cap returns the capacity.
func (w *Window) Cap() int { return w.ring.Cap() }

// Values appends all samples, oldest first, to dst.
func (w *Window) Values(dst []float64) []float64 {
	return w.ring.Items(dst)
}

// Last appends the most recent n samples (fewer if not available), oldest first, to dst.
func (w *Window) Last(n int, dst []float64) []float64 {
	start := w.ring.Len() - n
	if start < 0 {
		start = 0
	}
	for i := start; i < w.ring.Len(); i++ {
		dst = append(dst, w.At(i))
	}
	return dst
}

// Reset empties the window.
func (w *Window) Reset() {
	w.ring.Reset()
	w.sum = 0
	w.pushes = 0
}
