package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motionkit/internal/db"
	"github.com/banshee-data/motionkit/internal/events"
	"github.com/banshee-data/motionkit/internal/motion"
)

// fakeEngine records calls and serves canned state.
type fakeEngine struct {
	state    motion.CycleState
	expected motion.Label
	last     *motion.Result
	beginErr error

	begun []motion.Label
	reset int
}

func (f *fakeEngine) Begin(expected motion.Label) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.begun = append(f.begun, expected)
	f.state = motion.CycleAwaiting
	f.expected = expected
	return nil
}

func (f *fakeEngine) Reset() {
	f.reset++
	f.state = motion.CycleIdle
	f.expected = ""
}

func (f *fakeEngine) State() motion.CycleState { return f.state }
func (f *fakeEngine) Expected() motion.Label   { return f.expected }
func (f *fakeEngine) Last() *motion.Result     { return f.last }
func (f *fakeEngine) SamplesReceived() int64   { return 42 }

func newTestServer(t *testing.T, engine Engine, store *db.DB, mux *events.Mux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(engine, store, mux).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(42), body["samples_received"])
}

func TestBeginCycle(t *testing.T) {
	engine := &fakeEngine{}
	srv := newTestServer(t, engine, nil, nil)

	resp, err := http.Post(srv.URL+"/api/cycles", "application/json",
		strings.NewReader(`{"expected":"chop_it"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "awaiting", body["state"])
	assert.Equal(t, "chop_it", body["expected"])
	assert.Equal(t, []motion.Label{motion.LabelChop}, engine.begun)
}

func TestBeginCycleRejectsBadLabels(t *testing.T) {
	engine := &fakeEngine{}
	srv := newTestServer(t, engine, nil, nil)

	for _, payload := range []string{
		`{"expected":"rest_it"}`,
		`{"expected":"moonwalk"}`,
		`{"expected":""}`,
		`not json`,
	} {
		resp, err := http.Post(srv.URL+"/api/cycles", "application/json", strings.NewReader(payload))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "payload %s", payload)
		resp.Body.Close()
	}
	assert.Empty(t, engine.begun)
}

func TestResetCycle(t *testing.T) {
	engine := &fakeEngine{state: motion.CycleAwaiting, expected: motion.LabelShake}
	srv := newTestServer(t, engine, nil, nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/cycles", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, 1, engine.reset)
}

func TestCyclesMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, nil)
	resp, err := http.Get(srv.URL + "/api/cycles")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCurrentCycle(t *testing.T) {
	engine := &fakeEngine{
		state:    motion.CycleResolved,
		expected: motion.LabelDrive,
		last: &motion.Result{
			Expected:   motion.LabelDrive,
			Predicted:  motion.LabelDrive,
			Confidence: 0.93,
			Outcome:    motion.OutcomeMatched,
		},
	}
	srv := newTestServer(t, engine, nil, nil)

	resp, err := http.Get(srv.URL + "/api/cycles/current")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "resolved", body["state"])
	assert.Equal(t, "drive_it", body["expected"])
	require.Contains(t, body, "last_result")
	last := body["last_result"].(map[string]any)
	assert.Equal(t, "matched", last["outcome"])
}

func TestLabels(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, nil)

	resp, err := http.Get(srv.URL + "/api/labels")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "rest_it", body["rest"])
	assert.Equal(t, []any{"chop_it", "drive_it", "shake_it"}, body["gestures"])
}

func TestAttemptsAndStats(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.MigrateUp())

	session, err := store.CreateSession("replay")
	require.NoError(t, err)
	require.NoError(t, store.RecordAttempt(session.SessionID, motion.Result{
		Expected:         motion.LabelChop,
		Predicted:        motion.LabelChop,
		Confidence:       0.96,
		Outcome:          motion.OutcomeMatched,
		WindowsEvaluated: 2,
		Elapsed:          900 * time.Millisecond,
	}))

	srv := newTestServer(t, &fakeEngine{}, store, nil)

	resp, err := http.Get(srv.URL + "/api/attempts?limit=10")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	attempts := body["attempts"].([]any)
	require.Len(t, attempts, 1)
	first := attempts[0].(map[string]any)
	assert.Equal(t, "chop_it", first["expected"])
	assert.Equal(t, "matched", first["outcome"])

	resp, err = http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	labels := body["labels"].([]any)
	require.Len(t, labels, 1)
	assert.Equal(t, float64(1), labels[0].(map[string]any)["matched"])
}

func TestAttemptsInvalidLimit(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.MigrateUp())

	srv := newTestServer(t, &fakeEngine{}, store, nil)
	for _, q := range []string{"?limit=0", "?limit=-3", "?limit=abc"} {
		resp, err := http.Get(srv.URL + "/api/attempts" + q)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %s", q)
		resp.Body.Close()
	}
}

func TestHistoryEndpointsWithoutStore(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, nil)
	for _, path := range []string{"/api/attempts", "/api/stats"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "path %s", path)
		resp.Body.Close()
	}
}

func TestEventStream(t *testing.T) {
	mux := events.NewMux()
	srv := newTestServer(t, &fakeEngine{}, nil, mux)

	resp, err := http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription is registered before the handler writes headers, so
	// the event cannot be missed once the response has arrived.
	mux.Publish(events.Event{
		Type:       events.TypeMatch,
		Expected:   motion.LabelChop,
		Predicted:  motion.LabelChop,
		Confidence: 0.97,
		At:         time.Now().UTC(),
	})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: match\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev))
	assert.Equal(t, motion.LabelChop, ev.Predicted)
	assert.InDelta(t, 0.97, ev.Confidence, 1e-9)
}

func TestEventStreamWithoutMux(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, nil)
	resp, err := http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
