package motion

// WindowExtractor decides, on every new sample, whether a classifier window
// is ready and which window slot it belongs to.
//
// A window becomes ready when the ring holds a full WindowSize of samples
// and the count of samples since the last reset is a multiple of
// WindowOffset. The slot index cycles 0,1,...,NumWindows-1,0,... so that a
// window starting WindowOffset samples after slot k's previous window lands
// in slot k+1, and slot k repeats every WindowSize samples. The aggregator
// keys recurrent state by this slot index.
//
// The first WindowSize samples after a reset produce no window. That is
// intentional: it bounds the minimum latency before any prediction and
// guarantees no window is built from a partially filled ring.
//
// Not safe for concurrent use; owned by the engine consumer goroutine.
type WindowExtractor struct {
	ring *SampleRing
	seen int // samples accepted since reset
}

// NewWindowExtractor returns an extractor with an empty ring.
func NewWindowExtractor() *WindowExtractor {
	return &WindowExtractor{ring: NewSampleRing()}
}

// Push accepts one sample. When the sample completes a window, Push returns
// that window (oldest sample first), its slot index in [0, NumWindows), and
// true.
func (x *WindowExtractor) Push(s Sample) (Window, int, bool) {
	x.ring.Write(s)
	x.seen++
	if x.seen < WindowSize || x.seen%WindowOffset != 0 {
		return nil, 0, false
	}
	slot := (x.seen % WindowSize) / WindowOffset
	return x.ring.Window(), slot, true
}

// Seen returns the number of samples accepted since the last reset.
func (x *WindowExtractor) Seen() int {
	return x.seen
}

// Reset empties the ring and restarts the sample count. Resetting twice in a
// row is equivalent to resetting once.
func (x *WindowExtractor) Reset() {
	x.ring.Reset()
	x.seen = 0
}
