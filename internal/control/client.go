package control

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/signalsfoundry/ospf-animator/core"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ViewState is a decoded snapshot as returned by the service. Detail is
// left as raw JSON; its shape depends on the view.
type ViewState struct {
	View   string           `json:"view"`
	Badge  string           `json:"badge"`
	State  core.RenderState `json:"state"`
	Detail json.RawMessage  `json:"detail"`
}

// Client is a typed wrapper around the playback service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// ListViews returns the names of the views the server plays.
func (c *Client) ListViews(ctx context.Context) ([]string, error) {
	out, err := c.invoke(ctx, "ListViews", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var names []string
	for _, v := range out.GetFields()["views"].GetListValue().GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// GetState fetches the current state of view.
func (c *Client) GetState(ctx context.Context, view string) (ViewState, error) {
	return c.viewCall(ctx, "GetState", view, nil)
}

// Play starts or resumes view.
func (c *Client) Play(ctx context.Context, view string) (ViewState, error) {
	return c.viewCall(ctx, "Play", view, nil)
}

// Pause freezes view.
func (c *Client) Pause(ctx context.Context, view string) (ViewState, error) {
	return c.viewCall(ctx, "Pause", view, nil)
}

// Reset returns view to its initial state.
func (c *Client) Reset(ctx context.Context, view string) (ViewState, error) {
	return c.viewCall(ctx, "Reset", view, nil)
}

// StepForward skips view to its next step.
func (c *Client) StepForward(ctx context.Context, view string) (ViewState, error) {
	return c.viewCall(ctx, "StepForward", view, nil)
}

// SetSpeed applies a speed slider value to view.
func (c *Client) SetSpeed(ctx context.Context, view string, percent int) (ViewState, error) {
	return c.viewCall(ctx, "SetSpeed", view, map[string]interface{}{"percent": percent})
}

func (c *Client) viewCall(ctx context.Context, method, view string, extra map[string]interface{}) (ViewState, error) {
	fields := map[string]interface{}{"view": view}
	for k, v := range extra {
		fields[k] = v
	}
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return ViewState{}, err
	}
	return DecodeViewState(out)
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeViewState converts a snapshot Struct back into a ViewState.
func DecodeViewState(s *structpb.Struct) (ViewState, error) {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return ViewState{}, fmt.Errorf("encode view state: %w", err)
	}
	var vs ViewState
	if err := json.Unmarshal(data, &vs); err != nil {
		return ViewState{}, fmt.Errorf("decode view state: %w", err)
	}
	vs.State.Elapsed = time.Duration(vs.State.ElapsedMs * float64(time.Millisecond))
	return vs, nil
}
