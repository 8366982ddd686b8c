package control

import (
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/observability"
	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// NewServer builds a gRPC server with the playback service registered and
// the request-ID, tracing and metrics interceptors chained in that order.
// collector may be nil.
func NewServer(state *sim.PlaybackState, log logging.Logger, collector *observability.ControlCollector) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if collector != nil {
		interceptors = append(interceptors, collector.UnaryServerInterceptor())
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	RegisterPlaybackServer(server, NewPlaybackService(state, log))
	return server
}
