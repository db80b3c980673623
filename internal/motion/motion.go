// Package motion implements the streaming gesture recognition engine: a
// bounded ring of fixed-rate IMU samples, overlapping window extraction at a
// fixed stride, and a per-cycle prediction aggregator that resolves an
// expected gesture to matched, mismatched, or timed out.
//
// The package deliberately knows nothing about where samples come from or
// where results go. Samplers push Samples into the Engine's channel; the
// Engine invokes a Classifier and reports resolutions through the Events
// callbacks. There is exactly one consumer goroutine: all buffer and
// slot-state mutation happens there, so none of the hot-path types lock.
package motion

import "time"

// Stream geometry. These are fixed at compile time because the classifier
// models are trained against exactly this shape; changing them invalidates
// every stored prototype.
const (
	// SampleRate is the nominal sensor delivery rate in samples per second.
	SampleRate = 25

	// FeatureCount is the number of features per sample: 3-axis rotation
	// rate followed by 3-axis user acceleration.
	FeatureCount = 6

	// WindowSize is the number of samples per classifier input window.
	WindowSize = 20

	// WindowOffset is the stride, in samples, between the starts of
	// consecutive windows. Must divide WindowSize.
	WindowOffset = 5

	// NumWindows is the number of distinct window slots. Consecutive
	// windows overlap by WindowSize - WindowOffset samples.
	NumWindows = WindowSize / WindowOffset
)

// Default aggregator tuning. Both are runtime-tunable via config; the
// defaults match the values the models were evaluated with.
const (
	// DefaultPredictionThreshold is the minimum predicted-label
	// probability required to accept a classification as decisive.
	DefaultPredictionThreshold = 0.9

	// DefaultGestureTimeout bounds how long a cycle waits for a confident
	// prediction before resolving as timed out.
	DefaultGestureTimeout = 1500 * time.Millisecond
)

// Label identifies a gesture class.
type Label string

// The built-in label set. LabelRest is the "no gesture in progress" class
// and never resolves a cycle.
const (
	LabelChop  Label = "chop_it"
	LabelDrive Label = "drive_it"
	LabelShake Label = "shake_it"
	LabelRest  Label = "rest_it"
)

// GestureLabels lists the labels a cycle can expect, excluding the rest
// class.
var GestureLabels = []Label{LabelChop, LabelDrive, LabelShake}

// IsGestureLabel reports whether l is a recognisable (non-rest) gesture.
func IsGestureLabel(l Label) bool {
	for _, g := range GestureLabels {
		if l == g {
			return true
		}
	}
	return false
}

// Sample is one fixed-rate IMU reading: rotation rate in rad/s and user
// acceleration in g, both in the device frame. Samples are immutable once
// recorded.
type Sample struct {
	RotX, RotY, RotZ float64
	AccX, AccY, AccZ float64
}

// Features returns the sample as a feature vector in classifier input order.
func (s Sample) Features() [FeatureCount]float64 {
	return [FeatureCount]float64{s.RotX, s.RotY, s.RotZ, s.AccX, s.AccY, s.AccZ}
}

// Window is a contiguous span of WindowSize samples, oldest first, submitted
// to the classifier as one inference input.
type Window []Sample

// Prediction is a single classifier output: the winning label plus the full
// per-label probability distribution. Predictions are consumed immediately
// by the aggregator and discarded.
type Prediction struct {
	Label         Label
	Probabilities map[Label]float64
}

// Confidence returns the probability assigned to the predicted label.
func (p Prediction) Confidence() float64 {
	return p.Probabilities[p.Label]
}

// RecurrentState is opaque classifier-internal state carried between
// sequential invocations of the same window slot. A nil state means "no
// prior context"; classifiers must accept it.
type RecurrentState any

// Classifier is the external collaborator that scores a window. Predict
// must be deterministic given identical inputs. A returned error is
// non-fatal: the aggregator skips that window's contribution and keeps
// waiting for further windows or the timeout.
type Classifier interface {
	Predict(w Window, prior RecurrentState) (Prediction, RecurrentState, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(w Window, prior RecurrentState) (Prediction, RecurrentState, error)

// Predict implements Classifier.
func (f ClassifierFunc) Predict(w Window, prior RecurrentState) (Prediction, RecurrentState, error) {
	return f(w, prior)
}
