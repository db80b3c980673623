package motion

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/timeutil"
)

// CycleState is the aggregator's position in one expected-gesture cycle.
type CycleState int

const (
	// CycleIdle means no gesture is expected. Samples are accepted but not
	// evaluated.
	CycleIdle CycleState = iota
	// CycleAwaiting means an expected gesture is set, buffers are reset,
	// and the timeout is running.
	CycleAwaiting
	// CycleResolved is terminal for the cycle: matched, mismatched, or
	// timed out. Further windows are not evaluated.
	CycleResolved
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleAwaiting:
		return "awaiting"
	case CycleResolved:
		return "resolved"
	}
	return fmt.Sprintf("CycleState(%d)", int(s))
}

// Outcome is how a resolved cycle ended.
type Outcome string

const (
	OutcomeMatched    Outcome = "matched"
	OutcomeMismatched Outcome = "mismatched"
	OutcomeTimedOut   Outcome = "timed_out"
)

// Events receives cycle resolutions. Callbacks are invoked exactly once per
// cycle, outside the aggregator's lock, from whichever goroutine resolved
// the cycle (the engine consumer or the timeout watcher).
type Events interface {
	OnMatch()
	OnMismatch(expected, predicted Label)
	OnTimeout()
}

type noopEvents struct{}

func (noopEvents) OnMatch()                {}
func (noopEvents) OnMismatch(Label, Label) {}
func (noopEvents) OnTimeout()              {}

// Result summarises one resolved cycle.
type Result struct {
	Expected         Label         `json:"expected"`
	Predicted        Label         `json:"predicted,omitempty"` // empty when timed out
	Confidence       float64       `json:"confidence"`
	Outcome          Outcome       `json:"outcome"`
	WindowsEvaluated int           `json:"windows_evaluated"`
	Elapsed          time.Duration `json:"elapsed"`
}

// CycleConfig configures a Cycle. Zero values select defaults.
type CycleConfig struct {
	// Classifier scores windows. Required.
	Classifier Classifier

	// Events receives resolutions. Nil means no callbacks.
	Events Events

	// Clock drives the timeout. Nil means the real clock.
	Clock timeutil.Clock

	// Threshold is the minimum confidence to accept a prediction.
	// Zero means DefaultPredictionThreshold.
	Threshold float64

	// Timeout bounds the cycle. Zero means DefaultGestureTimeout.
	Timeout time.Duration

	// RestLabel is the class the aggregator ignores. Empty means LabelRest.
	RestLabel Label

	// OnResolved, when non-nil, receives the Result of every resolution
	// after the Events callback. Used by the service shell to persist and
	// publish outcomes.
	OnResolved func(Result)
}

// Cycle aggregates window predictions over one expected-gesture cycle.
//
// Window evaluation arrives serially from the engine consumer; the timeout
// watcher is the only other goroutine that touches the cycle. The mutex
// guards the transition out of Awaiting so that exactly one of {confident
// prediction, timeout} resolves the cycle and the loser is a no-op.
type Cycle struct {
	classifier Classifier
	events     Events
	clock      timeutil.Clock
	threshold  float64
	timeout    time.Duration
	restLabel  Label
	onResolved func(Result)

	mu         sync.Mutex
	state      CycleState
	expected   Label
	slotStates map[int]RecurrentState
	windows    int
	startedAt  time.Time
	last       *Result

	timer    timeutil.Timer
	timerGen int           // invalidates watchers from earlier cycles
	cancel   chan struct{} // unblocks the current watcher on resolve/reset
}

// NewCycle validates cfg and returns an idle cycle. A missing classifier is
// a setup error: the aggregator cannot run without one.
func NewCycle(cfg CycleConfig) (*Cycle, error) {
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("motion: cycle requires a classifier")
	}
	if cfg.Events == nil {
		cfg.Events = noopEvents{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultPredictionThreshold
	}
	if cfg.Threshold < 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("motion: prediction threshold %v out of range (0,1)", cfg.Threshold)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultGestureTimeout
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("motion: negative gesture timeout %v", cfg.Timeout)
	}
	if cfg.RestLabel == "" {
		cfg.RestLabel = LabelRest
	}
	return &Cycle{
		classifier: cfg.Classifier,
		events:     cfg.Events,
		clock:      cfg.Clock,
		threshold:  cfg.Threshold,
		timeout:    cfg.Timeout,
		restLabel:  cfg.RestLabel,
		onResolved: cfg.OnResolved,
		state:      CycleIdle,
		slotStates: make(map[int]RecurrentState),
	}, nil
}

// Begin starts a new expected-gesture cycle: clears all window-slot
// recurrent states, invalidates any pending timer from a previous cycle,
// and arms a fresh timeout. The caller must reset its window extractor
// alongside (Engine.Begin does both).
func (c *Cycle) Begin(expected Label) error {
	if expected == c.restLabel {
		return fmt.Errorf("motion: cannot await the rest label %q", expected)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.state = CycleAwaiting
	c.expected = expected
	c.slotStates = make(map[int]RecurrentState)
	c.windows = 0
	c.startedAt = c.clock.Now()
	c.last = nil

	c.timerGen++
	c.timer = c.clock.NewTimer(c.timeout)
	c.cancel = make(chan struct{})
	go c.watchTimeout(c.timerGen, c.timer, c.cancel)
	return nil
}

// Reset returns the cycle to Idle, cancelling any pending timeout and
// clearing slot states. Resetting twice in a row leaves the same state as
// resetting once.
func (c *Cycle) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.state = CycleIdle
	c.expected = ""
	c.slotStates = make(map[int]RecurrentState)
	c.windows = 0
	c.last = nil
}

// stopTimerLocked invalidates the current timeout watcher, if any.
func (c *Cycle) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

func (c *Cycle) watchTimeout(gen int, t timeutil.Timer, cancel <-chan struct{}) {
	select {
	case <-t.C():
		c.timeoutFired(gen)
	case <-cancel:
	}
}

// timeoutFired resolves the cycle as timed out unless a prediction (or a
// newer cycle) got there first, in which case it is a guaranteed no-op.
func (c *Cycle) timeoutFired(gen int) {
	c.mu.Lock()
	if gen != c.timerGen || c.state != CycleAwaiting {
		c.mu.Unlock()
		return
	}
	notify := c.resolveLocked(OutcomeTimedOut, "", 0)
	c.mu.Unlock()
	notify()
}

// Evaluate scores one ready window against the expected gesture. It is a
// no-op unless the cycle is Awaiting. Classifier errors skip the window;
// the cycle keeps waiting for further windows or the timeout.
func (c *Cycle) Evaluate(w Window, slot int) {
	c.mu.Lock()
	if c.state != CycleAwaiting {
		c.mu.Unlock()
		return
	}

	prior := c.slotStates[slot]
	pred, next, err := c.classifier.Predict(w, prior)
	if err != nil {
		c.mu.Unlock()
		monitoring.Debugf("motion: classifier failed on window slot %d: %v", slot, err)
		return
	}
	c.slotStates[slot] = next
	c.windows++

	if pred.Label == c.restLabel {
		c.mu.Unlock()
		return
	}
	conf := pred.Confidence()
	if conf <= c.threshold {
		c.mu.Unlock()
		return
	}

	var notify func()
	if pred.Label == c.expected {
		notify = c.resolveLocked(OutcomeMatched, pred.Label, conf)
	} else {
		notify = c.resolveLocked(OutcomeMismatched, pred.Label, conf)
	}
	c.mu.Unlock()
	notify()
}

// resolveLocked performs the single Awaiting -> Resolved transition and
// returns the callback to run once the lock is released.
func (c *Cycle) resolveLocked(outcome Outcome, predicted Label, conf float64) func() {
	c.state = CycleResolved
	c.stopTimerLocked()

	res := Result{
		Expected:         c.expected,
		Predicted:        predicted,
		Confidence:       conf,
		Outcome:          outcome,
		WindowsEvaluated: c.windows,
		Elapsed:          c.clock.Since(c.startedAt),
	}
	c.last = &res

	events, hook := c.events, c.onResolved
	return func() {
		switch outcome {
		case OutcomeMatched:
			events.OnMatch()
		case OutcomeMismatched:
			events.OnMismatch(res.Expected, res.Predicted)
		case OutcomeTimedOut:
			events.OnTimeout()
		}
		if hook != nil {
			hook(res)
		}
	}
}

// State returns the current cycle state.
func (c *Cycle) State() CycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Expected returns the label the current cycle is awaiting, or empty.
func (c *Cycle) Expected() Label {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expected
}

// Last returns the most recent resolution, or nil if the cycle has not
// resolved since the last Begin or Reset.
func (c *Cycle) Last() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	res := *c.last
	return &res
}
