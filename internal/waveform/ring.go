package waveform

// Ring is a fixed-length buffer of the most recent samples.
type Ring struct {
	samples []float64
	head    int
}

// NewRing creates a ring of n zero samples.
func NewRing(n int) *Ring {
	if n < 1 {
		n = 1
	}
	return &Ring{samples: make([]float64, n)}
}

// Push discards the oldest sample and appends v.
func (r *Ring) Push(v float64) {
	r.samples[r.head] = v
	r.head = (r.head + 1) % len(r.samples)
}

// Len returns the fixed buffer length.
func (r *Ring) Len() int {
	return len(r.samples)
}

// Latest returns the most recently pushed sample.
func (r *Ring) Latest() float64 {
	return r.samples[(r.head-1+len(r.samples))%len(r.samples)]
}

// Samples returns a copy ordered oldest to newest.
func (r *Ring) Samples() []float64 {
	out := make([]float64, 0, len(r.samples))
	out = append(out, r.samples[r.head:]...)
	return append(out, r.samples[:r.head]...)
}

// Flat reports whether every sample is zero.
func (r *Ring) Flat() bool {
	for _, s := range r.samples {
		if s != 0 {
			return false
		}
	}
	return true
}
