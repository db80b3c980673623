package motion

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/motionkit/internal/monitoring"
)

// Config configures an Engine. It embeds the cycle configuration; see
// CycleConfig for field semantics.
type Config struct {
	CycleConfig

	// QueueSize is the capacity of the sample channel. Zero means one
	// second of samples at the nominal rate. Samplers block when the
	// queue is full rather than dropping, preserving arrival order.
	QueueSize int
}

// Engine ties the window extractor and the prediction aggregator to a
// sample channel.
//
// Single-consumer contract: exactly one goroutine (Run) drains the sample
// channel, and one sample is fully processed — including any resulting
// window extraction and classification — before the next is accepted.
// Producers may be many; they contend only on the channel send. Begin may
// be called from any goroutine (typically an HTTP handler); it serialises
// against the consumer via the extractor lock.
type Engine struct {
	cycle   *Cycle
	samples chan Sample

	mu        sync.Mutex // guards extractor: consumer push vs Begin reset
	extractor *WindowExtractor

	received atomic.Int64
}

// NewEngine validates cfg and returns a ready engine. Errors are setup
// errors (missing classifier, bad tuning); the engine cannot run without
// its buffers and collaborators.
func NewEngine(cfg Config) (*Engine, error) {
	cycle, err := NewCycle(cfg.CycleConfig)
	if err != nil {
		return nil, err
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = SampleRate
	}
	return &Engine{
		cycle:     cycle,
		samples:   make(chan Sample, queue),
		extractor: NewWindowExtractor(),
	}, nil
}

// Samples returns the channel samplers push into.
func (e *Engine) Samples() chan<- Sample {
	return e.samples
}

// Begin starts a new expected-gesture cycle: the ring buffer is reset, all
// window-slot recurrent states are cleared, and the gesture timeout starts.
// Any cycle already in flight is abandoned (its timer is invalidated, no
// callback fires for it).
func (e *Engine) Begin(expected Label) error {
	e.mu.Lock()
	e.extractor.Reset()
	e.mu.Unlock()
	if err := e.cycle.Begin(expected); err != nil {
		return err
	}
	monitoring.Debugf("motion: awaiting gesture %q", expected)
	return nil
}

// Reset abandons any cycle in flight and returns the engine to idle.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.extractor.Reset()
	e.mu.Unlock()
	e.cycle.Reset()
}

// Run drains the sample channel until ctx is cancelled. It must be called
// exactly once; it is the single consumer.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-e.samples:
			e.ingest(s)
		}
	}
}

// ingest processes one sample. Samples arriving while no gesture is
// expected (or after the cycle resolved) are accepted and discarded; that
// is an idle no-op, not an error.
func (e *Engine) ingest(s Sample) {
	// Counted on completion so SamplesReceived only covers fully
	// processed samples, classification included.
	defer e.received.Add(1)
	if e.cycle.State() != CycleAwaiting {
		return
	}
	e.mu.Lock()
	w, slot, ready := e.extractor.Push(s)
	e.mu.Unlock()
	if ready {
		e.cycle.Evaluate(w, slot)
	}
}

// State returns the current cycle state.
func (e *Engine) State() CycleState {
	return e.cycle.State()
}

// Expected returns the label the current cycle awaits, or empty.
func (e *Engine) Expected() Label {
	return e.cycle.Expected()
}

// Last returns the most recent cycle resolution, or nil.
func (e *Engine) Last() *Result {
	return e.cycle.Last()
}

// SamplesReceived returns the total number of samples drained, including
// those discarded while idle.
func (e *Engine) SamplesReceived() int64 {
	return e.received.Load()
}
