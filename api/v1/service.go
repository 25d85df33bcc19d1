package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	ControlService_GetConfig_FullMethodName    = "/flightlab.v1.ControlService/GetConfig"
	ControlService_WatchConfig_FullMethodName  = "/flightlab.v1.ControlService/WatchConfig"
	ControlService_UpdateStatus_FullMethodName = "/flightlab.v1.ControlService/UpdateStatus"
	ControlService_WatchStatus_FullMethodName  = "/flightlab.v1.ControlService/WatchStatus"
	ControlService_WatchCommand_FullMethodName = "/flightlab.v1.ControlService/WatchCommand"
)

// ControlServiceClient is the client API for the master's ControlService.
type ControlServiceClient interface {
	GetConfig(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*SystemConfig, error)
	WatchConfig(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[SystemConfig], error)
	UpdateStatus(ctx context.Context, in *MachineStatus, opts ...grpc.CallOption) (*emptypb.Empty, error)
	WatchStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MachineStatus], error)
	WatchCommand(ctx context.Context, in *MachineID, opts ...grpc.CallOption) (grpc.ServerStreamingClient[SystemCommand], error)
}

type controlServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewControlServiceClient returns a client that always speaks the CBOR codec.
func NewControlServiceClient(cc grpc.ClientConnInterface) ControlServiceClient {
	return &controlServiceClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *controlServiceClient) GetConfig(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*SystemConfig, error) {
	out := new(SystemConfig)
	if err := c.cc.Invoke(ctx, ControlService_GetConfig_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlServiceClient) WatchConfig(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[SystemConfig], error) {
	return openStream[emptypb.Empty, SystemConfig](ctx, c.cc, 0, ControlService_WatchConfig_FullMethodName, in, opts)
}

func (c *controlServiceClient) UpdateStatus(ctx context.Context, in *MachineStatus, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, ControlService_UpdateStatus_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlServiceClient) WatchStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[MachineStatus], error) {
	return openStream[emptypb.Empty, MachineStatus](ctx, c.cc, 1, ControlService_WatchStatus_FullMethodName, in, opts)
}

func (c *controlServiceClient) WatchCommand(ctx context.Context, in *MachineID, opts ...grpc.CallOption) (grpc.ServerStreamingClient[SystemCommand], error) {
	return openStream[MachineID, SystemCommand](ctx, c.cc, 2, ControlService_WatchCommand_FullMethodName, in, opts)
}

func openStream[Req any, Res any](ctx context.Context, cc grpc.ClientConnInterface, idx int, method string, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Res], error) {
	stream, err := cc.NewStream(ctx, &ControlService_ServiceDesc.Streams[idx], method, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Res]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ControlServiceServer is the server API for the master's ControlService.
type ControlServiceServer interface {
	GetConfig(context.Context, *emptypb.Empty) (*SystemConfig, error)
	WatchConfig(*emptypb.Empty, grpc.ServerStreamingServer[SystemConfig]) error
	UpdateStatus(context.Context, *MachineStatus) (*emptypb.Empty, error)
	WatchStatus(*emptypb.Empty, grpc.ServerStreamingServer[MachineStatus]) error
	WatchCommand(*MachineID, grpc.ServerStreamingServer[SystemCommand]) error
}

// UnimplementedControlServiceServer can be embedded for forward compatibility.
type UnimplementedControlServiceServer struct{}

func (UnimplementedControlServiceServer) GetConfig(context.Context, *emptypb.Empty) (*SystemConfig, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetConfig not implemented")
}
func (UnimplementedControlServiceServer) WatchConfig(*emptypb.Empty, grpc.ServerStreamingServer[SystemConfig]) error {
	return status.Errorf(codes.Unimplemented, "method WatchConfig not implemented")
}
func (UnimplementedControlServiceServer) UpdateStatus(context.Context, *MachineStatus) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateStatus not implemented")
}
func (UnimplementedControlServiceServer) WatchStatus(*emptypb.Empty, grpc.ServerStreamingServer[MachineStatus]) error {
	return status.Errorf(codes.Unimplemented, "method WatchStatus not implemented")
}
func (UnimplementedControlServiceServer) WatchCommand(*MachineID, grpc.ServerStreamingServer[SystemCommand]) error {
	return status.Errorf(codes.Unimplemented, "method WatchCommand not implemented")
}

// RegisterControlServiceServer registers srv with the gRPC server.
func RegisterControlServiceServer(s grpc.ServiceRegistrar, srv ControlServiceServer) {
	s.RegisterService(&ControlService_ServiceDesc, srv)
}

func _ControlService_GetConfig_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServiceServer).GetConfig(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ControlService_GetConfig_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServiceServer).GetConfig(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _ControlService_UpdateStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MachineStatus)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServiceServer).UpdateStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ControlService_UpdateStatus_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServiceServer).UpdateStatus(ctx, req.(*MachineStatus))
	}
	return interceptor(ctx, in, info, handler)
}

func _ControlService_WatchConfig_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ControlServiceServer).WatchConfig(m, &grpc.GenericServerStream[emptypb.Empty, SystemConfig]{ServerStream: stream})
}

func _ControlService_WatchStatus_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ControlServiceServer).WatchStatus(m, &grpc.GenericServerStream[emptypb.Empty, MachineStatus]{ServerStream: stream})
}

func _ControlService_WatchCommand_Handler(srv any, stream grpc.ServerStream) error {
	m := new(MachineID)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ControlServiceServer).WatchCommand(m, &grpc.GenericServerStream[MachineID, SystemCommand]{ServerStream: stream})
}

// ControlService_ServiceDesc is the grpc.ServiceDesc for the ControlService.
// Messages are exchanged with the CBOR codec registered by this package.
var ControlService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "flightlab.v1.ControlService",
	HandlerType: (*ControlServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetConfig",
			Handler:    _ControlService_GetConfig_Handler,
		},
		{
			MethodName: "UpdateStatus",
			Handler:    _ControlService_UpdateStatus_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchConfig",
			Handler:       _ControlService_WatchConfig_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "WatchStatus",
			Handler:       _ControlService_WatchStatus_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "WatchCommand",
			Handler:       _ControlService_WatchCommand_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "api/v1/service.go",
}
