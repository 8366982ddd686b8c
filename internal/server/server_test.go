package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/observability"
	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
	"github.com/signalsfoundry/ospf-animator/internal/views"
)

// snapshotBody mirrors views.Snapshot with the detail left undecoded.
type snapshotBody struct {
	View  string           `json:"view"`
	Badge string           `json:"badge"`
	State core.RenderState `json:"state"`
}

func startTestServer(t *testing.T, opts ...Option) (*httptest.Server, *sim.PlaybackState, *Server) {
	t.Helper()
	state, err := sim.NewPlaybackState(logging.Noop())
	if err != nil {
		t.Fatalf("NewPlaybackState() error = %v", err)
	}
	srv := New("127.0.0.1:0", state, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return ts, state, srv
}

func post(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSnapshot(t *testing.T, resp *http.Response) snapshotBody {
	t.Helper()
	var body snapshotBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return body
}

func TestServer_Health(t *testing.T) {
	ts, _, _ := startTestServer(t)
	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response is missing a request ID")
	}
}

func TestServer_EchoesRequestID(t *testing.T) {
	ts, _, _ := startTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, "abc-123")
	}
}

func TestServer_Root(t *testing.T) {
	ts, _, _ := startTestServer(t)
	resp := get(t, ts.URL+"/")
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["service"] != "ospf-animator" {
		t.Errorf("service = %v, want ospf-animator", body["service"])
	}
}

func TestServer_NotFound(t *testing.T) {
	ts, _, _ := startTestServer(t)
	if resp := get(t, ts.URL+"/nonexistent"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp := get(t, ts.URL+"/api/views/quiz"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown view status = %d, want 404", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/views/quiz/play"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown view action status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_ListViews(t *testing.T) {
	ts, _, _ := startTestServer(t)
	resp := get(t, ts.URL+"/api/views")
	var body []snapshotBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 3 {
		t.Fatalf("len(views) = %d, want 3", len(body))
	}
	if body[0].View != views.ViewPacket || body[0].State.State != core.Idle {
		t.Errorf("first view = %+v, want idle packet view", body[0])
	}
}

func TestServer_Actions(t *testing.T) {
	ts, _, _ := startTestServer(t)
	base := ts.URL + "/api/views/" + views.ViewPacket

	snap := decodeSnapshot(t, post(t, base+"/play"))
	if !snap.State.Running || snap.State.State != core.StepInProgress {
		t.Fatalf("after play state = %+v, want running step", snap.State)
	}

	snap = decodeSnapshot(t, post(t, base+"/pause"))
	if snap.State.Running {
		t.Fatal("after pause view should not run")
	}

	snap = decodeSnapshot(t, post(t, base+"/step"))
	if snap.State.StepIndex != 1 || snap.Badge != "Step 2/5" {
		t.Fatalf("after step index=%d badge=%q, want 1 and Step 2/5", snap.State.StepIndex, snap.Badge)
	}

	snap = decodeSnapshot(t, post(t, base+"/reset"))
	if snap.State.State != core.Idle || snap.State.StepIndex != 0 {
		t.Fatalf("after reset state = %+v, want idle at 0", snap.State)
	}

	got := decodeSnapshot(t, get(t, base))
	if got.State.State != core.Idle {
		t.Fatalf("GET state = %v, want idle", got.State.State)
	}
}

func TestServer_ActionErrors(t *testing.T) {
	ts, _, _ := startTestServer(t)
	base := ts.URL + "/api/views/" + views.ViewRouting

	if resp := post(t, base+"/fly"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", resp.StatusCode)
	}
	if resp := post(t, base+"/speed?percent=fast"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric speed status = %d, want 400", resp.StatusCode)
	}
	if resp := post(t, base+"/speed?percent=5"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out-of-range speed status = %d, want 400", resp.StatusCode)
	}
	if resp := get(t, base+"/play"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET action status = %d, want 405", resp.StatusCode)
	}
}

func TestServer_Speed(t *testing.T) {
	ts, _, _ := startTestServer(t)
	snap := decodeSnapshot(t, post(t, ts.URL+"/api/views/topology/speed?percent=100"))
	if snap.State.Speed != 2 {
		t.Errorf("speed = %v, want 2", snap.State.Speed)
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector() error = %v", err)
	}
	collector.ObserveFrame(time.Millisecond)
	ts, _, _ := startTestServer(t, WithMetricsHandler(observability.HandlerFor(reg)))

	resp := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "engine_frame_duration_seconds") {
		t.Error("metrics output missing engine_frame_duration_seconds")
	}
}

func TestServer_WebSocketBroadcast(t *testing.T) {
	ts, state, srv := startTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	state.TickAll(16 * time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg struct {
		Views []snapshotBody `json:"views"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if len(msg.Views) != 3 {
		t.Fatalf("frame carries %d views, want 3", len(msg.Views))
	}
}

func TestServer_WebSocketSendsLatestFrameOnConnect(t *testing.T) {
	ts, state, _ := startTestServer(t)
	state.TickAll(16 * time.Millisecond)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
}
