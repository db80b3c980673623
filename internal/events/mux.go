// Package events fans gesture cycle resolutions out to multiple
// subscribers (SSE clients, loggers). It is the same subscribe/unsubscribe
// shape as a serial line multiplexer: subscribers get their own channel,
// identified by a random ID used to unsubscribe.
package events

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/motion"
)

// Event describes one cycle lifecycle notification.
type Event struct {
	Type       string       `json:"type"` // "awaiting", "match", "mismatch", "timeout"
	Expected   motion.Label `json:"expected,omitempty"`
	Predicted  motion.Label `json:"predicted,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	At         time.Time    `json:"at"`
}

// Event type values.
const (
	TypeAwaiting = "awaiting"
	TypeMatch    = "match"
	TypeMismatch = "mismatch"
	TypeTimeout  = "timeout"
)

const subscriberBuffer = 16

// Mux is a fan-out hub for Events. The zero value is not usable; call
// NewMux.
type Mux struct {
	mu          sync.Mutex
	subscribers map[string]chan Event
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{subscribers: make(map[string]chan Event)}
}

// randomID generates a random channel ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a new buffered channel for receiving events. The
// returned ID identifies the channel when unsubscribing.
func (m *Mux) Subscribe() (string, <-chan Event) {
	id := randomID()
	ch := make(chan Event, subscriberBuffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Mux) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Publish delivers e to every subscriber. Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the event.
func (m *Mux) Publish(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.subscribers {
		select {
		case ch <- e:
		default:
			monitoring.Debugf("events: subscriber %s buffer full, dropping %s", id, e.Type)
		}
	}
}

// Subscribers returns the current subscriber count.
func (m *Mux) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}
