package tests

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/control"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/observability"
	"github.com/signalsfoundry/ospf-animator/internal/server"
	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type e2eEnv struct {
	ctx    context.Context
	state  *sim.PlaybackState
	client *control.Client
	http   *httptest.Server
	hub    *server.Hub
}

func newE2EEnv(t *testing.T) *e2eEnv {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	engineMetrics, err := observability.NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	controlMetrics, err := observability.NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}

	state, err := sim.NewPlaybackState(logging.Noop(), sim.WithMetricsRecorder(engineMetrics))
	if err != nil {
		t.Fatalf("NewPlaybackState: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	grpcServer := control.NewServer(state, logging.Noop(), controlMetrics)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	srv := server.New("127.0.0.1:0", state,
		server.WithMetricsHandler(observability.HandlerFor(reg)),
		server.WithControlMetrics(controlMetrics),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})

	return &e2eEnv{
		ctx:    ctx,
		state:  state,
		client: control.NewClient(conn),
		http:   ts,
		hub:    srv.Hub(),
	}
}

func (e *e2eEnv) httpState(t *testing.T, view string) core.RenderState {
	t.Helper()
	resp, err := http.Get(e.http.URL + "/api/views/" + view)
	if err != nil {
		t.Fatalf("GET %s: %v", view, err)
	}
	defer resp.Body.Close()
	var body struct {
		State core.RenderState `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", view, err)
	}
	return body.State
}

func TestE2E_GRPCControlIsVisibleOverHTTP(t *testing.T) {
	env := newE2EEnv(t)

	names, err := env.client.ListViews(env.ctx)
	if err != nil {
		t.Fatalf("ListViews: %v", err)
	}
	if strings.Join(names, ",") != "packet,topology,routing" {
		t.Fatalf("ListViews = %v", names)
	}

	if _, err := env.client.Play(env.ctx, views.ViewPacket); err != nil {
		t.Fatalf("Play: %v", err)
	}
	env.state.TickAll(4500 * time.Millisecond)

	rs := env.httpState(t, views.ViewPacket)
	if !rs.Running || rs.State != core.StepInProgress || rs.StepIndex != 0 {
		t.Fatalf("HTTP state after play = %+v, want running at step 0", rs)
	}
	if rs.ElapsedMs != 4500 {
		t.Fatalf("HTTP elapsed = %vms, want 4500ms", rs.ElapsedMs)
	}

	// Other views were never played.
	if other := env.httpState(t, views.ViewRouting); other.State != core.Idle || other.ElapsedMs != 0 {
		t.Fatalf("routing view moved without play: %+v", other)
	}

	resp, err := http.Post(env.http.URL+"/api/views/packet/step", "application/json", nil)
	if err != nil {
		t.Fatalf("POST step: %v", err)
	}
	resp.Body.Close()

	st, err := env.client.GetState(env.ctx, views.ViewPacket)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.State.StepIndex != 1 || st.Badge != "Step 2/5" || st.State.ElapsedMs != 0 {
		t.Fatalf("gRPC state after HTTP step = %+v badge %q", st.State, st.Badge)
	}
}

func TestE2E_PlaysToFinishAndRestarts(t *testing.T) {
	env := newE2EEnv(t)

	if _, err := env.client.SetSpeed(env.ctx, views.ViewRouting, 100); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if _, err := env.client.Play(env.ctx, views.ViewRouting); err != nil {
		t.Fatalf("Play: %v", err)
	}

	finished := false
	for i := 0; i < 10000 && !finished; i++ {
		env.state.TickAll(16 * time.Millisecond)
		snap, err := env.state.Snapshot(views.ViewRouting)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		finished = snap.State.Finished
	}
	if !finished {
		t.Fatal("routing view never finished")
	}

	st, err := env.client.GetState(env.ctx, views.ViewRouting)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if st.State.Running || st.State.CanStepForward {
		t.Fatalf("finished state = %+v, want paused with no step forward", st.State)
	}

	st, err = env.client.Play(env.ctx, views.ViewRouting)
	if err != nil {
		t.Fatalf("Play after finish: %v", err)
	}
	if st.State.State != core.StepInProgress || !st.State.Running || st.State.ElapsedMs != 0 {
		t.Fatalf("replay state = %+v, want restarted from the top", st.State)
	}
	if st.State.Speed != 2 {
		t.Fatalf("speed after restart = %v, want 2", st.State.Speed)
	}
}

func TestE2E_ErrorsMapAcrossTransports(t *testing.T) {
	env := newE2EEnv(t)

	_, err := env.client.GetState(env.ctx, "quiz")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("gRPC unknown view code = %v, want NotFound", status.Code(err))
	}
	_, err = env.client.SetSpeed(env.ctx, views.ViewPacket, 101)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("gRPC bad speed code = %v, want InvalidArgument", status.Code(err))
	}

	resp, err := http.Post(env.http.URL+"/api/views/packet/speed?percent=101", "application/json", nil)
	if err != nil {
		t.Fatalf("POST speed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("HTTP bad speed status = %d, want 400", resp.StatusCode)
	}
}

func TestE2E_WebSocketAndMetrics(t *testing.T) {
	env := newE2EEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := env.client.Play(env.ctx, views.ViewTopology); err != nil {
		t.Fatalf("Play: %v", err)
	}
	env.state.TickAll(16 * time.Millisecond)
	env.httpState(t, views.ViewTopology)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg struct {
		Views []struct {
			View  string           `json:"view"`
			State core.RenderState `json:"state"`
		} `json:"views"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if len(msg.Views) != 3 || msg.Views[1].View != views.ViewTopology || !msg.Views[1].State.Running {
		t.Fatalf("frame = %+v, want three views with topology running", msg.Views)
	}

	resp, err := http.Get(env.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, name := range []string{
		`control_requests_total{code="OK",operation="Play",transport="grpc"}`,
		`control_requests_total{code="200",operation="GetState",transport="http"}`,
		"engine_ticks_total",
		"engine_frame_duration_seconds",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}
