package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MonitorService_ServiceName is the fully qualified gRPC service name.
const MonitorService_ServiceName = "trialmonitor.v1.MonitorService"

// Full method names, as clients address them.
const (
	MonitorService_GetAnalytics_FullMethodName    = "/" + MonitorService_ServiceName + "/GetAnalytics"
	MonitorService_GetClinicStatus_FullMethodName = "/" + MonitorService_ServiceName + "/GetClinicStatus"
	MonitorService_ListAlerts_FullMethodName      = "/" + MonitorService_ServiceName + "/ListAlerts"
	MonitorService_ResolveAlert_FullMethodName    = "/" + MonitorService_ServiceName + "/ResolveAlert"
	MonitorService_StreamAlerts_FullMethodName    = "/" + MonitorService_ServiceName + "/StreamAlerts"
)

// MonitorServiceServer is the server API for the monitor service. Messages
// are protobuf well-known types so no generated code is needed.
type MonitorServiceServer interface {
	GetAnalytics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetClinicStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveAlert(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	StreamAlerts(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

var _ MonitorServiceServer = (*Server)(nil)

func RegisterMonitorServiceServer(s grpc.ServiceRegistrar, srv MonitorServiceServer) {
	s.RegisterService(&MonitorService_ServiceDesc, srv)
}

func _MonitorService_GetAnalytics_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServiceServer).GetAnalytics(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MonitorService_GetAnalytics_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).GetAnalytics(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _MonitorService_GetClinicStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServiceServer).GetClinicStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MonitorService_GetClinicStatus_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).GetClinicStatus(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _MonitorService_ListAlerts_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServiceServer).ListAlerts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MonitorService_ListAlerts_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).ListAlerts(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MonitorService_ResolveAlert_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServiceServer).ResolveAlert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MonitorService_ResolveAlert_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServiceServer).ResolveAlert(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _MonitorService_StreamAlerts_Handler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(MonitorServiceServer).StreamAlerts(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var MonitorService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: MonitorService_ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAnalytics",
			Handler:    _MonitorService_GetAnalytics_Handler,
		},
		{
			MethodName: "GetClinicStatus",
			Handler:    _MonitorService_GetClinicStatus_Handler,
		},
		{
			MethodName: "ListAlerts",
			Handler:    _MonitorService_ListAlerts_Handler,
		},
		{
			MethodName: "ResolveAlert",
			Handler:    _MonitorService_ResolveAlert_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamAlerts",
			Handler:       _MonitorService_StreamAlerts_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "trialmonitor/v1/monitor.proto",
}
