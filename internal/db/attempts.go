package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motionkit/internal/motion"
)

// Session groups the attempts recorded during one daemon run.
type Session struct {
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
}

// Attempt is one recorded cycle resolution.
type Attempt struct {
	AttemptID        int64        `json:"attempt_id"`
	SessionID        string       `json:"session_id"`
	Expected         motion.Label `json:"expected"`
	Predicted        motion.Label `json:"predicted,omitempty"`
	Confidence       float64      `json:"confidence"`
	Outcome          string       `json:"outcome"`
	WindowsEvaluated int          `json:"windows_evaluated"`
	LatencyMs        int64        `json:"latency_ms"`
	CreatedAt        time.Time    `json:"created_at"`
}

// LabelStats summarises attempt outcomes for one expected label.
type LabelStats struct {
	Expected   motion.Label `json:"expected"`
	Attempts   int          `json:"attempts"`
	Matched    int          `json:"matched"`
	Mismatched int          `json:"mismatched"`
	TimedOut   int          `json:"timed_out"`
	MatchRate  float64      `json:"match_rate"`
}

// CreateSession inserts a new session row and returns it.
func (db *DB) CreateSession(source string) (Session, error) {
	s := Session{
		SessionID: uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, source, started_at) VALUES (?, ?, ?)`,
		s.SessionID, s.Source, s.StartedAt,
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// RecordAttempt persists one cycle resolution for the given session.
func (db *DB) RecordAttempt(sessionID string, res motion.Result) error {
	_, err := db.Exec(
		`INSERT INTO gesture_attempts
			(session_id, expected, predicted, confidence, outcome, windows_evaluated, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		string(res.Expected),
		string(res.Predicted),
		res.Confidence,
		string(res.Outcome),
		res.WindowsEvaluated,
		res.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the most recent attempts, newest first, up to limit.
func (db *DB) ListAttempts(limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT attempt_id, session_id, expected, predicted, confidence, outcome,
		        windows_evaluated, latency_ms, created_at
		 FROM gesture_attempts
		 ORDER BY attempt_id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var expected, predicted, outcome string
		if err := rows.Scan(
			&a.AttemptID, &a.SessionID, &expected, &predicted, &a.Confidence,
			&outcome, &a.WindowsEvaluated, &a.LatencyMs, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Expected = motion.Label(expected)
		a.Predicted = motion.Label(predicted)
		a.Outcome = outcome
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// LabelStats aggregates outcome counts per expected label across all
// sessions.
func (db *DB) LabelStats() ([]LabelStats, error) {
	rows, err := db.Query(
		`SELECT expected,
		        COUNT(*),
		        SUM(CASE WHEN outcome = 'matched' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN outcome = 'mismatched' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN outcome = 'timed_out' THEN 1 ELSE 0 END)
		 FROM gesture_attempts
		 GROUP BY expected
		 ORDER BY expected`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer rows.Close()

	var stats []LabelStats
	for rows.Next() {
		var s LabelStats
		var expected string
		if err := rows.Scan(&expected, &s.Attempts, &s.Matched, &s.Mismatched, &s.TimedOut); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.Expected = motion.Label(expected)
		if s.Attempts > 0 {
			s.MatchRate = float64(s.Matched) / float64(s.Attempts)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
