// Package api exposes the recognition engine over HTTP: cycle control,
// attempt history, per-label stats, and a server-sent event stream of
// resolutions.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/motionkit/internal/db"
	"github.com/banshee-data/motionkit/internal/events"
	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/version"
)

// ANSI escape codes for request log colouring.
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Engine is the slice of the motion engine the API needs. *motion.Engine
// satisfies it; tests substitute fakes.
type Engine interface {
	Begin(expected motion.Label) error
	Reset()
	State() motion.CycleState
	Expected() motion.Label
	Last() *motion.Result
	SamplesReceived() int64
}

// Server wires the engine, the attempt store, and the event mux into an
// http.Handler.
type Server struct {
	engine Engine
	store  *db.DB
	events *events.Mux
}

// NewServer returns a Server. store may be nil (history endpoints return
// 503) and events may be nil (the SSE endpoint returns 503); the engine is
// required.
func NewServer(engine Engine, store *db.DB, mux *events.Mux) *Server {
	return &Server{engine: engine, store: store, events: mux}
}

// Routes returns the API handler with logging middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/cycles", s.handleCycles)
	mux.HandleFunc("/api/cycles/current", s.handleCurrentCycle)
	mux.HandleFunc("/api/attempts", s.handleAttempts)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/labels", s.handleLabels)
	mux.HandleFunc("/api/events", s.handleEvents)
	return LoggingMiddleware(mux)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s %vms",
			statusCodeColor(lrw.statusCode), r.Method, r.URL.Path,
			time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Debugf("api: failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"version":          version.Version,
		"samples_received": s.engine.SamplesReceived(),
	})
}

type beginCycleRequest struct {
	Expected motion.Label `json:"expected"`
}

// handleCycles starts a new expected-gesture cycle (POST) or abandons the
// current one (DELETE).
func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req beginCycleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if !motion.IsGestureLabel(req.Expected) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown gesture label %q", req.Expected))
			return
		}
		if err := s.engine.Begin(req.Expected); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.events != nil {
			s.events.Publish(events.Event{
				Type:     events.TypeAwaiting,
				Expected: req.Expected,
				At:       time.Now().UTC(),
			})
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"state":    s.engine.State().String(),
			"expected": req.Expected,
		})
	case http.MethodDelete:
		s.engine.Reset()
		writeJSON(w, http.StatusOK, map[string]any{"state": s.engine.State().String()})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "POST or DELETE required")
	}
}

func (s *Server) handleCurrentCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	resp := map[string]any{
		"state":    s.engine.State().String(),
		"expected": s.engine.Expected(),
	}
	if last := s.engine.Last(); last != nil {
		resp["last_result"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "attempt store not configured")
		return
	}
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", q))
			return
		}
		limit = v
	}
	attempts, err := s.store.ListAttempts(limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "attempt store not configured")
		return
	}
	stats, err := s.store.LabelStats()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": stats})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gestures": motion.GestureLabels,
		"rest":     motion.LabelRest,
	})
}

// handleEvents streams cycle resolutions as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if s.events == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event stream not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	id, ch := s.events.Subscribe()
	defer s.events.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				monitoring.Debugf("api: failed to marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
