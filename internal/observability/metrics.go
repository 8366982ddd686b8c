// Package observability holds the animator's Prometheus collectors and
// OpenTelemetry tracing setup.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Transport label values.
const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"
)

// ControlCollector counts playback control requests from both the gRPC
// service and the HTTP API, so either surface shows up on one dashboard.
type ControlCollector struct {
	gatherer prometheus.Gatherer

	Requests  *prometheus.CounterVec
	Durations *prometheus.HistogramVec
}

// NewControlCollector registers control metrics against reg, defaulting
// to the global Prometheus registry when nil.
func NewControlCollector(reg prometheus.Registerer) (*ControlCollector, error) {
	reg, gatherer := registryOrDefault(reg)

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "control_requests_total",
		Help: "Playback control requests, labeled by transport, operation and result code.",
	}, []string{"transport", "operation", "code"}), "control_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "control_request_duration_seconds",
		Help:    "Playback control request latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"transport", "operation"}), "control_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &ControlCollector{gatherer: gatherer, Requests: requests, Durations: durations}, nil
}

// Gatherer returns the gatherer the collector's metrics are exposed on.
func (c *ControlCollector) Gatherer() prometheus.Gatherer { return c.gatherer }

func (c *ControlCollector) observe(transport, operation, code string, took time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(transport, operation, code).Inc()
	c.Durations.WithLabelValues(transport, operation).Observe(took.Seconds())
}

// UnaryServerInterceptor records each unary RPC under its method name and
// gRPC status code.
func (c *ControlCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		_, method := SplitMethod(fullMethod)
		c.observe(TransportGRPC, method, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

// InstrumentHTTP records requests to next under operation with the HTTP
// status code. A nil collector returns next unchanged.
func (c *ControlCollector) InstrumentHTTP(operation string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.observe(TransportHTTP, operation, strconv.Itoa(sw.code), time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// HandlerFor returns a /metrics handler for gatherer, falling back to the
// default gatherer when nil.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod splits "/pkg.Service/Method" into its short service name and
// method. Anything unparseable yields "unknown" for both.
func SplitMethod(fullMethod string) (service, method string) {
	path := strings.TrimPrefix(fullMethod, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "unknown", "unknown"
	}
	service, method = path[:i], path[i+1:]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	return service, method
}

func registryOrDefault(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		return reg, g
	}
	return reg, prometheus.DefaultGatherer
}

// register adds c to reg, returning the already registered collector of
// the same type when one exists under that name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
		err = fmt.Errorf("collector %s already registered with incompatible type", name)
	}
	var zero T
	return zero, err
}
