package sampler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial"

	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/motion"
)

// SerialSource reads sample lines from a serial-attached IMU bridge.
type SerialSource struct {
	PortName string
	BaudRate int

	// RotationUnits and AccelerationUnits name the units the bridge
	// publishes in. Empty means engine-native (rad/s, g).
	RotationUnits     string
	AccelerationUnits string
}

// NewSerialSource returns a source for the named port. A zero baud rate
// means 115200.
func NewSerialSource(portName string, baudRate int) *SerialSource {
	if baudRate <= 0 {
		baudRate = 115200
	}
	return &SerialSource{PortName: portName, BaudRate: baudRate}
}

// Run opens the port and forwards parsed samples until ctx is cancelled.
// Unparseable lines are logged and skipped: a glitched line must not stall
// the stream.
func (s *SerialSource) Run(ctx context.Context, out chan<- motion.Sample) error {
	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.PortName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.PortName, err)
	}

	// Closing the port is the only way to unblock the scanner read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
		}
	}()
	defer port.Close()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sample, err := ParseLine(line)
		if err != nil {
			monitoring.Debugf("sampler: skipping serial line: %v", err)
			continue
		}
		sample = convertUnits(sample, s.RotationUnits, s.AccelerationUnits)
		if err := send(ctx, out, sample); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serial read failed: %w", err)
	}
	return nil
}
