// Package control exposes playback control over gRPC. Messages are
// google.protobuf.Struct values so the service needs no generated code:
// requests carry {"view": string, "percent": number}, responses carry a
// view snapshot in its JSON shape.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/signalsfoundry/ospf-animator/internal/logging"
	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/protobuf/types/known/structpb"
)

// PlaybackService implements PlaybackServer backed by a PlaybackState.
type PlaybackService struct {
	state *sim.PlaybackState
	log   logging.Logger
}

// NewPlaybackService constructs a PlaybackService bound to state.
func NewPlaybackService(state *sim.PlaybackState, log logging.Logger) *PlaybackService {
	if log == nil {
		log = logging.Noop()
	}
	return &PlaybackService{state: state, log: log}
}

// ListViews returns {"views": [names...]}.
func (s *PlaybackService) ListViews(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	names := s.state.Views()
	list := make([]interface{}, 0, len(names))
	for _, n := range names {
		list = append(list, n)
	}
	out, err := structpb.NewStruct(map[string]interface{}{"views": list})
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// GetState returns the named view's snapshot.
func (s *PlaybackService) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	view, err := viewField(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	ctx, span := startViewSpan(ctx, "Snapshot", view)
	defer span.End()

	snap, err := s.state.Snapshot(view)
	return s.respond(ctx, snap, err)
}

// Play starts or resumes the named view.
func (s *PlaybackService) Play(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, sim.ActionPlay)
}

// Pause freezes the named view.
func (s *PlaybackService) Pause(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, sim.ActionPause)
}

// Reset returns the named view to its initial state.
func (s *PlaybackService) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, sim.ActionReset)
}

// StepForward skips the named view to its next step.
func (s *PlaybackService) StepForward(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.apply(ctx, req, sim.ActionStep)
}

// SetSpeed applies {"percent": n} to the named view.
func (s *PlaybackService) SetSpeed(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	view, err := viewField(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	v, ok := req.GetFields()["percent"]
	if !ok {
		return nil, ToStatusError(ErrMissingPercent)
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return nil, ToStatusError(fmt.Errorf("%w: percent must be a number", ErrMissingPercent))
	}
	percent := int(math.Round(v.GetNumberValue()))

	ctx, span := startViewSpan(ctx, "SetSpeed", view, attribute.Int("percent", percent))
	defer span.End()

	snap, err := s.state.SetSpeed(ctx, view, percent)
	return s.respond(ctx, snap, err)
}

func (s *PlaybackService) apply(ctx context.Context, req *structpb.Struct, action sim.Action) (*structpb.Struct, error) {
	view, err := viewField(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	ctx, span := startViewSpan(ctx, "Apply", view, attribute.String("action", string(action)))
	defer span.End()

	snap, err := s.state.Apply(ctx, view, action)
	return s.respond(ctx, snap, err)
}

// respond marks the span carried by ctx as failed when err is set.
func (s *PlaybackService) respond(ctx context.Context, snap views.Snapshot, err error) (*structpb.Struct, error) {
	if err != nil {
		trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
		s.logger(ctx).Warn(ctx, "playback control failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	out, err := SnapshotToStruct(snap)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *PlaybackService) logger(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, s.log)
}

func viewField(req *structpb.Struct) (string, error) {
	view := req.GetFields()["view"].GetStringValue()
	if view == "" {
		return "", ErrMissingView
	}
	return view, nil
}

// SnapshotToStruct converts a snapshot into its JSON-shaped Struct.
func SnapshotToStruct(snap views.Snapshot) (*structpb.Struct, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return structpb.NewStruct(m)
}
