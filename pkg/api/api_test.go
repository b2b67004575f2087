package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/observability"
	"github.com/matzehuels/linlog/pkg/pipeline"
	"github.com/matzehuels/linlog/pkg/session"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	ts := httptest.NewServer(New(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

const twoPairs = `{"graph": {"edges": [
	{"from": "a", "to": "b"},
	{"from": "c", "to": "d"}
]}}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestLayout(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	ts := newTestServer(t, Config{Runner: pipeline.NewRunner(fc, nil, log.New(io.Discard))})

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/layout", twoPairs)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	first := decode[layoutResponse](t, body)
	assert.False(t, first.Cached)
	assert.Len(t, first.Nodes, 4)
	assert.Equal(t, 2, first.Clusters)
	assert.InDelta(t, 0.5, first.Modularity, 1e-9)
	assert.Equal(t, 2, first.Dimensions)

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/layout", twoPairs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[layoutResponse](t, body)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Nodes, second.Nodes)
}

func TestLayoutOptions(t *testing.T) {
	ts := newTestServer(t, Config{})
	body := `{"graph": {"edges": [{"from": "a", "to": "b"}]}, "options": {"dimensions": 3, "iterations": 5}}`
	resp, data := do(t, http.MethodPost, ts.URL+"/v1/layout", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, 3, decode[layoutResponse](t, data).Dimensions)
}

func TestLayoutErrors(t *testing.T) {
	ts := newTestServer(t, Config{})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"graph":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", `{"grpah": {}}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad options", `{"graph": {}, "options": {"dimensions": 4}}`, http.StatusBadRequest, "INVALID_OPTIONS"},
		{"negative weight", `{"graph": {"edges": [{"from": "a", "to": "b", "weight": -1}]}}`, http.StatusBadRequest, "INVALID_GRAPH"},
		{"empty node id", `{"graph": {"nodes": [{"id": ""}]}}`, http.StatusBadRequest, "INVALID_GRAPH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, ts.URL+"/v1/layout", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, string(decode[errorBody](t, data).Code))
		})
	}
}

func TestEmptyGraphLayout(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, data := do(t, http.MethodPost, ts.URL+"/v1/layout", `{"graph": {}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	l := decode[layoutResponse](t, data)
	assert.Empty(t, l.Nodes)
	assert.Equal(t, 0, l.Clusters)
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, data := do(t, http.MethodPost, ts.URL+"/v1/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	s := decode[sessionResponse](t, data)
	require.NotEmpty(t, s.ID)
	return s.ID
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, Config{SessionTTL: time.Hour})
	id := createSession(t, ts)
	base := ts.URL + "/v1/sessions/" + id

	resp, data := do(t, http.MethodGet, base+"/layout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(0), decode[snapshotResponse](t, data).Seq)

	edits := `{"nodes": [{"id": "x"}], "edges": [
		{"from": "a", "to": "b"},
		{"from": "b", "to": "c"},
		{"from": "c", "to": "a"}
	]}`
	resp, data = do(t, http.MethodPost, base+"/edits", edits)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	snap := decode[snapshotResponse](t, data)
	assert.Equal(t, uint64(1), snap.Seq, "one batch, one relayout")
	assert.Equal(t, "batch", snap.Trigger)
	assert.Len(t, snap.Layout.Nodes, 4)

	resp, data = do(t, http.MethodGet, base+"/layout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(1), decode[snapshotResponse](t, data).Seq)

	resp, data = do(t, http.MethodPost, ts.URL+"/v1/sessions", `{"options": {"gravity": -1}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_OPTIONS", string(decode[errorBody](t, data).Code))

	resp, _ = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = do(t, http.MethodGet, base+"/layout", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", string(decode[errorBody](t, data).Code))
}

func TestSessionRejectsInvalidBatch(t *testing.T) {
	ts := newTestServer(t, Config{})
	base := ts.URL + "/v1/sessions/" + createSession(t, ts)

	bad := `{"edges": [{"from": "a", "to": "b"}, {"from": "b", "to": "c", "weight": -2}]}`
	resp, data := do(t, http.MethodPost, base+"/edits", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_GRAPH", string(decode[errorBody](t, data).Code))

	resp, data = do(t, http.MethodGet, base+"/layout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[snapshotResponse](t, data)
	assert.Equal(t, uint64(0), snap.Seq)
	assert.Empty(t, snap.Layout.Nodes)
}

func TestEmptyBatchDoesNotRelayout(t *testing.T) {
	ts := newTestServer(t, Config{})
	base := ts.URL + "/v1/sessions/" + createSession(t, ts)

	resp, data := do(t, http.MethodPost, base+"/edits", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(0), decode[snapshotResponse](t, data).Seq)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, Config{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/layout"},
		{http.MethodPost, "/edits"},
		{http.MethodDelete, ""},
	} {
		resp, data := do(t, tc.method, ts.URL+"/v1/sessions/nope"+tc.path, "{}")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.method+tc.path)
		assert.Equal(t, "SESSION_NOT_FOUND", string(decode[errorBody](t, data).Code))
	}
}

func TestExpiredSession(t *testing.T) {
	store := session.NewMemoryStore()
	ts := newTestServer(t, Config{Sessions: store, SessionTTL: time.Millisecond})
	id := createSession(t, ts)
	time.Sleep(5 * time.Millisecond)

	resp, data := do(t, http.MethodGet, ts.URL+"/v1/sessions/"+id+"/layout", "")
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "SESSION_EXPIRED", string(decode[errorBody](t, data).Code))
	assert.Equal(t, 0, store.Len())
}

func TestStream(t *testing.T) {
	ts := newTestServer(t, Config{})
	id := createSession(t, ts)
	base := ts.URL + "/v1/sessions/" + id

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	r, data := do(t, http.MethodPost, base+"/edits", `{"edges": [{"from": "a", "to": "b"}, {"from": "b", "to": "c"}]}`)
	require.Equal(t, http.StatusOK, r.StatusCode, string(data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame snapshotResponse
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Equal(t, "batch", frame.Trigger)
	assert.Len(t, frame.Layout.Nodes, 3)

	r, _ = do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, r.StatusCode)

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
}

func TestStreamSendsCurrentLayout(t *testing.T) {
	ts := newTestServer(t, Config{})
	base := ts.URL + "/v1/sessions/" + createSession(t, ts)

	r, _ := do(t, http.MethodPost, base+"/edits", `{"edges": [{"from": "a", "to": "b"}]}`)
	require.Equal(t, http.StatusOK, r.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/stream", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame snapshotResponse
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Len(t, frame.Layout.Nodes, 2)
}

func TestStreamUnknownSession(t *testing.T) {
	ts := newTestServer(t, Config{})
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/sessions/nope/stream", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	defer observability.Reset()
	c := observability.NewCollector("linlog_api_test")
	c.Install()
	ts := newTestServer(t, Config{Metrics: c.Handler()})

	r, _ := do(t, http.MethodPost, ts.URL+"/v1/layout", twoPairs)
	require.Equal(t, http.StatusOK, r.StatusCode)
	r, _ = do(t, http.MethodPost, ts.URL+"/v1/layout", `{"graph":`)
	require.Equal(t, http.StatusBadRequest, r.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/v1/layout", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/v1/layout", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPErrors.WithLabelValues("POST", "/v1/layout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LayoutRuns.WithLabelValues("ok")))

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(body, []byte("linlog_api_test_http_requests_total")))
}

func TestNoMetricsRouteByDefault(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, _ := do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
