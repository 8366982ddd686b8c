package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "ospf.animator.v1.PlaybackService"

// PlaybackServer is the server API for the playback control service.
type PlaybackServer interface {
	ListViews(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Play(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Pause(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StepForward(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetSpeed(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(PlaybackServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes PlaybackService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlaybackServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("ListViews", PlaybackServer.ListViews),
		unaryMethod("GetState", PlaybackServer.GetState),
		unaryMethod("Play", PlaybackServer.Play),
		unaryMethod("Pause", PlaybackServer.Pause),
		unaryMethod("Reset", PlaybackServer.Reset),
		unaryMethod("StepForward", PlaybackServer.StepForward),
		unaryMethod("SetSpeed", PlaybackServer.SetSpeed),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ospf/animator/v1/playback.proto",
}

// RegisterPlaybackServer registers srv on s.
func RegisterPlaybackServer(s grpc.ServiceRegistrar, srv PlaybackServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PlaybackServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(PlaybackServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
