// Package knn implements a prototype-based k-nearest-neighbour gesture
// classifier over window feature vectors.
//
// Each prototype is a labelled feature vector extracted from a recorded
// gesture window and normalised to unit length. Classification normalises
// the input the same way, finds the k nearest prototypes by Euclidean
// distance, and aggregates inverse-distance weights per label into a
// probability distribution. New gesture types are added by appending
// prototypes; no retraining step exists.
//
// The recurrent state carried between invocations of the same window slot
// is the exponentially smoothed probability vector from that slot's
// previous pass. Smoothing conditions each slot on its own history, which
// damps single-window spikes without coupling adjacent slots.
package knn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/motion/features"
)

// ErrNoPrototypes is returned by Predict when the classifier has no
// prototypes to compare against.
var ErrNoPrototypes = errors.New("knn: no prototypes loaded")

const distanceEpsilon = 1e-6

// Prototype is one labelled reference vector.
type Prototype struct {
	Label    motion.Label `json:"label"`
	Features []float64    `json:"features"`
}

// prototypeFile is the on-disk JSON layout.
type prototypeFile struct {
	Prototypes []Prototype `json:"prototypes"`
}

// Options tunes the classifier. Zero values select defaults.
type Options struct {
	// K is the number of neighbours to aggregate. Zero means 5.
	K int

	// SmoothingAlpha is the weight of the current window's raw
	// distribution against the slot's previous smoothed distribution.
	// 1 disables smoothing entirely. Zero means 0.6.
	SmoothingAlpha float64
}

// Classifier implements motion.Classifier. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	protos []Prototype
	k      int
	alpha  float64
}

// New builds a classifier from the given prototypes. Prototype vectors must
// all have features.VectorLength entries; they are normalised in place.
func New(protos []Prototype, opts Options) (*Classifier, error) {
	if opts.K == 0 {
		opts.K = 5
	}
	if opts.K < 1 {
		return nil, fmt.Errorf("knn: k must be at least 1, got %d", opts.K)
	}
	if opts.SmoothingAlpha == 0 {
		opts.SmoothingAlpha = 0.6
	}
	if opts.SmoothingAlpha < 0 || opts.SmoothingAlpha > 1 {
		return nil, fmt.Errorf("knn: smoothing alpha %v out of range (0,1]", opts.SmoothingAlpha)
	}
	for i, p := range protos {
		if p.Label == "" {
			return nil, fmt.Errorf("knn: prototype %d has no label", i)
		}
		if len(p.Features) != features.VectorLength {
			return nil, fmt.Errorf("knn: prototype %d (%s) has %d features, want %d",
				i, p.Label, len(p.Features), features.VectorLength)
		}
		features.Normalize(p.Features)
	}
	return &Classifier{protos: protos, k: opts.K, alpha: opts.SmoothingAlpha}, nil
}

// Load reads prototypes from a JSON file and builds a classifier.
func Load(path string, opts Options) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knn: failed to read prototypes: %w", err)
	}
	var pf prototypeFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("knn: failed to parse prototypes %s: %w", path, err)
	}
	return New(pf.Prototypes, opts)
}

// Labels returns the distinct labels present in the prototype set, sorted.
func (c *Classifier) Labels() []motion.Label {
	seen := make(map[motion.Label]bool)
	for _, p := range c.protos {
		seen[p.Label] = true
	}
	labels := make([]motion.Label, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// slotMemory is the smoothed per-label distribution carried as the slot's
// recurrent state.
type slotMemory map[motion.Label]float64

// Predict implements motion.Classifier. It is deterministic given
// identical inputs: ties between equally probable labels break by label
// ordering.
func (c *Classifier) Predict(w motion.Window, prior motion.RecurrentState) (motion.Prediction, motion.RecurrentState, error) {
	if len(c.protos) == 0 {
		return motion.Prediction{}, nil, ErrNoPrototypes
	}
	if len(w) != motion.WindowSize {
		return motion.Prediction{}, nil, fmt.Errorf("knn: window has %d samples, want %d", len(w), motion.WindowSize)
	}

	v := features.Normalize(features.Vector(w))

	type neighbour struct {
		dist  float64
		label motion.Label
	}
	neighbours := make([]neighbour, len(c.protos))
	for i, p := range c.protos {
		neighbours[i] = neighbour{dist: floats.Distance(v, p.Features, 2), label: p.Label}
	}
	sort.Slice(neighbours, func(i, j int) bool {
		if neighbours[i].dist != neighbours[j].dist {
			return neighbours[i].dist < neighbours[j].dist
		}
		return neighbours[i].label < neighbours[j].label
	})

	k := c.k
	if k > len(neighbours) {
		k = len(neighbours)
	}

	raw := make(map[motion.Label]float64)
	var total float64
	for _, n := range neighbours[:k] {
		weight := 1 / (n.dist + distanceEpsilon)
		raw[n.label] += weight
		total += weight
	}
	for l := range raw {
		raw[l] /= total
	}

	smoothed := c.smooth(raw, prior)

	var best motion.Label
	bestProb := -1.0
	for _, l := range c.Labels() {
		if p := smoothed[l]; p > bestProb {
			best, bestProb = l, p
		}
	}

	pred := motion.Prediction{Label: best, Probabilities: smoothed}
	next := make(slotMemory, len(smoothed))
	for l, p := range smoothed {
		next[l] = p
	}
	return pred, next, nil
}

// smooth blends the raw distribution with the slot's previous smoothed
// distribution. A nil or foreign prior means no history: the raw
// distribution passes through.
func (c *Classifier) smooth(raw map[motion.Label]float64, prior motion.RecurrentState) map[motion.Label]float64 {
	prev, ok := prior.(slotMemory)
	if !ok || len(prev) == 0 {
		out := make(map[motion.Label]float64, len(raw))
		for l, p := range raw {
			out[l] = p
		}
		return out
	}

	out := make(map[motion.Label]float64, len(raw)+len(prev))
	for l := range raw {
		out[l] = c.alpha * raw[l]
	}
	for l, p := range prev {
		out[l] += (1 - c.alpha) * p
	}
	return out
}
