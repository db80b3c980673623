package sampler

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/motion"
)

// Recorded session CSV column layout. Sessions are recorded headerless as
// sessionId, activity, attitude (roll/pitch/yaw), rotation rate XYZ,
// gravity XYZ, user acceleration XYZ. Only the rotation rate and user
// acceleration columns feed the engine; the rest exist for training.
const (
	replayColumns = 14
	colRotX       = 5
	colUserAccelX = 11
)

// ReplaySource plays recorded session files back as a live sample stream.
// Used for development and regression runs against captured gestures.
type ReplaySource struct {
	Paths []string

	// Interval is the pacing between samples. Zero means the nominal
	// sensor rate; negative means no pacing (flat out).
	Interval time.Duration
}

// NewReplaySource returns a source that replays the given files in order.
func NewReplaySource(paths ...string) *ReplaySource {
	return &ReplaySource{Paths: paths}
}

// Run replays every file, pacing samples at the configured interval.
// Malformed rows are logged and skipped; an unreadable file aborts the
// replay.
func (r *ReplaySource) Run(ctx context.Context, out chan<- motion.Sample) error {
	interval := r.Interval
	if interval == 0 {
		interval = time.Second / motion.SampleRate
	}

	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for _, path := range r.Paths {
		if err := r.replayFile(ctx, path, out, ticker); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReplaySource) replayFile(ctx context.Context, path string, out chan<- motion.Sample, ticker *time.Ticker) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read session file %s: %w", path, err)
		}
		sample, err := SampleFromRecord(record)
		if err != nil {
			monitoring.Debugf("sampler: skipping row in %s: %v", path, err)
			continue
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := send(ctx, out, sample); err != nil {
			return err
		}
	}
}

// SampleFromRecord extracts the engine-facing features from one recorded
// session row.
func SampleFromRecord(record []string) (motion.Sample, error) {
	if len(record) < replayColumns {
		return motion.Sample{}, fmt.Errorf("session row has %d columns, want %d", len(record), replayColumns)
	}
	parse := func(i int) (float64, error) {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse column %d: %w", i, err)
		}
		return v, nil
	}

	var s motion.Sample
	var err error
	if s.RotX, err = parse(colRotX); err != nil {
		return motion.Sample{}, err
	}
	if s.RotY, err = parse(colRotX + 1); err != nil {
		return motion.Sample{}, err
	}
	if s.RotZ, err = parse(colRotX + 2); err != nil {
		return motion.Sample{}, err
	}
	if s.AccX, err = parse(colUserAccelX); err != nil {
		return motion.Sample{}, err
	}
	if s.AccY, err = parse(colUserAccelX + 1); err != nil {
		return motion.Sample{}, err
	}
	if s.AccZ, err = parse(colUserAccelX + 2); err != nil {
		return motion.Sample{}, err
	}
	return s, nil
}
