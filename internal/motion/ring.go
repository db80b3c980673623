package motion

// SampleRing is a bounded ring of the most recent WindowSize samples.
//
// A flat buffer of WindowSize + WindowOffset*(NumWindows-1) slots with
// every sample written twice (once at the write index, once WindowSize
// slots ahead) would keep windows from straddling the wrap point. True
// circular indexing makes the duplicate write unnecessary: Window
// reassembles the last WindowSize samples in arrival order regardless of
// where the head sits.
//
// SampleRing is not safe for concurrent use; it is owned by the single
// engine consumer goroutine.
type SampleRing struct {
	samples [WindowSize]Sample
	head    int // next write position
	size    int // live samples, saturates at WindowSize
}

// NewSampleRing returns an empty ring.
func NewSampleRing() *SampleRing {
	return &SampleRing{}
}

// Write appends one sample, overwriting the oldest once the ring is full.
func (r *SampleRing) Write(s Sample) {
	r.samples[r.head] = s
	r.head = (r.head + 1) % WindowSize
	if r.size < WindowSize {
		r.size++
	}
}

// Full reports whether the ring has been written at least WindowSize times
// since the last reset. No window may be extracted before this: the ring
// would still contain zero-valued or stale slots.
func (r *SampleRing) Full() bool {
	return r.size == WindowSize
}

// Len returns the number of live samples.
func (r *SampleRing) Len() int {
	return r.size
}

// Window returns the last WindowSize samples, oldest first. It returns nil
// until the ring is full. The returned slice is a copy; the caller may hold
// it across subsequent writes.
func (r *SampleRing) Window() Window {
	if !r.Full() {
		return nil
	}
	w := make(Window, WindowSize)
	for i := 0; i < WindowSize; i++ {
		w[i] = r.samples[(r.head+i)%WindowSize]
	}
	return w
}

// Reset empties the ring. Stale sample values are left in place but become
// unreadable because Full is false until WindowSize fresh writes land.
func (r *SampleRing) Reset() {
	r.head = 0
	r.size = 0
}
