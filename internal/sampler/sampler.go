// Package sampler provides sources that push fixed-rate IMU samples into
// the recognition engine's channel: a serial port reader, an MQTT
// subscriber, and a recorded-session replayer. All sources share one line
// format: six comma-separated floats, rotation rate XYZ in rad/s followed
// by user acceleration XYZ in g.
package sampler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/units"
)

// Source delivers samples to out until ctx is cancelled. Run blocks; each
// source runs on its own goroutine and must preserve sample arrival order.
type Source interface {
	Run(ctx context.Context, out chan<- motion.Sample) error
}

// ParseLine parses one wire line ("rotX,rotY,rotZ,accX,accY,accZ") into a
// sample.
func ParseLine(line string) (motion.Sample, error) {
	segments := strings.Split(strings.TrimSpace(line), ",")
	if len(segments) != motion.FeatureCount {
		return motion.Sample{}, fmt.Errorf("sample line has %d fields, want %d", len(segments), motion.FeatureCount)
	}
	var f [motion.FeatureCount]float64
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil {
			return motion.Sample{}, fmt.Errorf("failed to parse field %d: %w", i, err)
		}
		f[i] = v
	}
	return motion.Sample{
		RotX: f[0], RotY: f[1], RotZ: f[2],
		AccX: f[3], AccY: f[4], AccZ: f[5],
	}, nil
}

// convertUnits maps a parsed sample into engine units (rad/s and g). Empty
// or already-native unit names pass through unchanged.
func convertUnits(s motion.Sample, rotUnits, accUnits string) motion.Sample {
	s.RotX = units.ToRadiansPerSecond(s.RotX, rotUnits)
	s.RotY = units.ToRadiansPerSecond(s.RotY, rotUnits)
	s.RotZ = units.ToRadiansPerSecond(s.RotZ, rotUnits)
	s.AccX = units.ToGravityUnits(s.AccX, accUnits)
	s.AccY = units.ToGravityUnits(s.AccY, accUnits)
	s.AccZ = units.ToGravityUnits(s.AccZ, accUnits)
	return s
}

// send forwards one sample, abandoning it if ctx is cancelled first.
func send(ctx context.Context, out chan<- motion.Sample, s motion.Sample) error {
	select {
	case out <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
