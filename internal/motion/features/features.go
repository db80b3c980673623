// Package features extracts fixed-length statistical feature vectors from
// classifier windows. The vector layout is part of the prototype format:
// changing it invalidates every stored prototype, so append-only evolution
// is the rule here.
package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/motionkit/internal/motion"
)

// VectorLength is the length of the vector Vector returns: mean, standard
// deviation, and RMS per feature axis, plus one signal magnitude area for
// the rotation axes and one for the acceleration axes.
const VectorLength = motion.FeatureCount*3 + 2

// Vector computes the feature vector for one window. The result is not
// normalised; see Normalize.
func Vector(w motion.Window) []float64 {
	v := make([]float64, 0, VectorLength)

	series := make([][]float64, motion.FeatureCount)
	for i := range series {
		series[i] = make([]float64, len(w))
	}
	for n, s := range w {
		f := s.Features()
		for i := 0; i < motion.FeatureCount; i++ {
			series[i][n] = f[i]
		}
	}

	for i := 0; i < motion.FeatureCount; i++ {
		v = append(v, stat.Mean(series[i], nil))
		v = append(v, stat.StdDev(series[i], nil))
		v = append(v, rms(series[i]))
	}

	v = append(v, magnitudeArea(series[0], series[1], series[2]))
	v = append(v, magnitudeArea(series[3], series[4], series[5]))
	return v
}

// Normalize scales v to unit L2 length in place and returns it. A zero
// vector is returned unchanged.
func Normalize(v []float64) []float64 {
	n := floats.Norm(v, 2)
	if n == 0 {
		return v
	}
	floats.Scale(1/n, v)
	return v
}

// rms returns the root mean square of xs.
func rms(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(xs, xs) / float64(len(xs)))
}

// magnitudeArea returns the mean of |x|+|y|+|z| across the window, a cheap
// activity-level summary used widely for accelerometer classification.
func magnitudeArea(x, y, z []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for i := range x {
		sum += math.Abs(x[i]) + math.Abs(y[i]) + math.Abs(z[i])
	}
	return sum / float64(len(x))
}
