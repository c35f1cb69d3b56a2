package liveness

// Number is the set of sample types a RollingWindow can hold.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// RollingWindow is a fixed-capacity FIFO of samples.
// The oldest sample is evicted once the window is full.
type RollingWindow[T Number] struct {
	samples  []T
	capacity int
}

// NewRollingWindow returns an empty window. A capacity below 1 is treated as 1.
func NewRollingWindow[T Number](capacity int) *RollingWindow[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingWindow[T]{
		samples:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest sample if the window is at capacity.
func (w *RollingWindow[T]) Push(v T) {
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, v)
}

// Mean returns the arithmetic mean of the retained samples, or def if the window is empty.
func (w *RollingWindow[T]) Mean(def float64) float64 {
	if len(w.samples) == 0 {
		return def
	}
	var sum float64
	for _, v := range w.samples {
		sum += float64(v)
	}
	return sum / float64(len(w.samples))
}

// Len returns the number of retained samples.
func (w *RollingWindow[T]) Len() int { return len(w.samples) }

// Cap returns the window capacity.
func (w *RollingWindow[T]) Cap() int { return w.capacity }

// Values returns a copy of the retained samples, oldest first.
func (w *RollingWindow[T]) Values() []T {
	out := make([]T, len(w.samples))
	copy(out, w.samples)
	return out
}
