package control

import (
	"errors"

	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrMissingView indicates a request without a view name.
	ErrMissingView = errors.New("request is missing the view field")
	// ErrMissingPercent indicates a SetSpeed request without a percent.
	ErrMissingPercent = errors.New("request is missing the percent field")
)

// ToStatusError maps playback errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, sim.ErrUnknownView):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrMissingView),
		errors.Is(err, ErrMissingPercent),
		errors.Is(err, sim.ErrInvalidSpeed),
		errors.Is(err, sim.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
