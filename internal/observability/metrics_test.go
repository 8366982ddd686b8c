package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/signalsfoundry/ospf-animator/core"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/ospf.animator.v1.PlaybackService/Play"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues(TransportGRPC, "Play", "OK")); got != 1 {
		t.Fatalf("control_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "control_request_duration_seconds", map[string]string{
		"transport": TransportGRPC,
		"operation": "Play",
	}); count != 1 {
		t.Fatalf("control_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/ospf.animator.v1.PlaybackService/GetState"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "no such view")
	})

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues(TransportGRPC, "GetState", "NotFound")); got != 1 {
		t.Fatalf("control_requests_total error label = %v, want 1", got)
	}
}

func TestCollectorsReuseRegistrations(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	second, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("second NewEngineCollector: %v", err)
	}
	first.ObserveReset("packet")
	if got := testutil.ToFloat64(second.Resets.WithLabelValues("packet")); got != 1 {
		t.Fatalf("shared engine_resets_total = %v, want 1", got)
	}
}

func TestEngineCollectorRecordsEngineRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	s := core.Schedule{Name: "one", Steps: []core.Step{{Events: []core.TimedEvent{
		{ID: "a", Duration: time.Second},
	}}}}
	e := core.NewEngine(s, core.WithName("demo"), core.WithMetricsRecorder(collector))
	e.Play()
	e.Tick(500 * time.Millisecond)

	if got := testutil.ToFloat64(collector.ActiveEvents.WithLabelValues("demo")); got != 1 {
		t.Fatalf("engine_active_events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.VirtualElapsed.WithLabelValues("demo")); got != 0.5 {
		t.Fatalf("engine_virtual_elapsed_seconds = %v, want 0.5", got)
	}

	e.Tick(time.Second)
	if got := testutil.ToFloat64(collector.Ticks.WithLabelValues("demo")); got != 2 {
		t.Fatalf("engine_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.RunsFinished.WithLabelValues("demo")); got != 1 {
		t.Fatalf("engine_runs_finished_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Transitions.WithLabelValues("demo", "complete")); got != 1 {
		t.Fatalf("engine_step_transitions_total{reason=complete} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ActiveEvents.WithLabelValues("demo")); got != 0 {
		t.Fatalf("engine_active_events after finish = %v, want 0", got)
	}
}

func TestMetricsHandlerExposesEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	control, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}
	engine, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	engine.ObserveTick("routing", 1500*time.Millisecond)
	engine.ObserveTransition("routing", core.TransitionAdvance)
	engine.ObserveFrame(50 * time.Microsecond)
	control.Requests.WithLabelValues(TransportGRPC, "Play", "OK").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	HandlerFor(control.Gatherer()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"control_requests_total",
		"engine_ticks_total",
		"engine_step_transitions_total",
		"engine_virtual_elapsed_seconds",
		"engine_frame_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if !strings.Contains(body, `view="routing"`) {
		t.Fatalf("/metrics output missing view label: %s", body)
	}
}

func TestInstrumentHTTPRecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewControlCollector(reg)
	if err != nil {
		t.Fatalf("NewControlCollector: %v", err)
	}
	h := collector.InstrumentHTTP("action", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x?fail=1", nil))

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues(TransportHTTP, "action", "200")); got != 1 {
		t.Fatalf("control_requests_total{http,action,200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Requests.WithLabelValues(TransportHTTP, "action", "400")); got != 1 {
		t.Fatalf("control_requests_total{http,action,400} = %v, want 1", got)
	}
}

func TestInstrumentHTTPNilCollector(t *testing.T) {
	var collector *ControlCollector
	next := http.NotFoundHandler()
	if got := collector.InstrumentHTTP("x", next); got == nil {
		t.Fatal("InstrumentHTTP on nil collector returned nil")
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in            string
		service, meth string
	}{
		{"/ospf.animator.v1.PlaybackService/Play", "PlaybackService", "Play"},
		{"PlaybackService/Reset", "PlaybackService", "Reset"},
		{"", "unknown", "unknown"},
		{"garbage", "unknown", "unknown"},
	}
	for _, tt := range tests {
		s, m := SplitMethod(tt.in)
		if s != tt.service || m != tt.meth {
			t.Fatalf("SplitMethod(%q) = %q, %q, want %q, %q", tt.in, s, m, tt.service, tt.meth)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
