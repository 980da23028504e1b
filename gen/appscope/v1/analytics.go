// Package appscopev1 describes the appscope.v1.AnalyticsService gRPC
// service. Requests and responses are google.protobuf.Struct values carrying
// the same JSON shapes as the HTTP gateway, so no generated message types are
// needed.
package appscopev1

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "appscope.v1.AnalyticsService"

// Full method names.
const (
	AnalyticsService_Track_FullMethodName          = "/appscope.v1.AnalyticsService/Track"
	AnalyticsService_SubmitFeedback_FullMethodName = "/appscope.v1.AnalyticsService/SubmitFeedback"
	AnalyticsService_ListApps_FullMethodName       = "/appscope.v1.AnalyticsService/ListApps"
	AnalyticsService_GetDAU_FullMethodName         = "/appscope.v1.AnalyticsService/GetDAU"
	AnalyticsService_GetInstalls_FullMethodName    = "/appscope.v1.AnalyticsService/GetInstalls"
	AnalyticsService_GetRetention_FullMethodName   = "/appscope.v1.AnalyticsService/GetRetention"
	AnalyticsService_GetFeedback_FullMethodName    = "/appscope.v1.AnalyticsService/GetFeedback"
)

// IsWriteMethod reports whether fullMethod records data and therefore needs
// the write key rather than the read key.
func IsWriteMethod(fullMethod string) bool {
	return fullMethod == AnalyticsService_Track_FullMethodName ||
		fullMethod == AnalyticsService_SubmitFeedback_FullMethodName
}

// AnalyticsServiceServer is the server API for AnalyticsService.
type AnalyticsServiceServer interface {
	Track(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListApps(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDAU(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetInstalls(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRetention(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAnalyticsServiceServer returns Unimplemented for every method.
type UnimplementedAnalyticsServiceServer struct{}

func (UnimplementedAnalyticsServiceServer) Track(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Track not implemented")
}
func (UnimplementedAnalyticsServiceServer) SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitFeedback not implemented")
}
func (UnimplementedAnalyticsServiceServer) ListApps(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListApps not implemented")
}
func (UnimplementedAnalyticsServiceServer) GetDAU(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDAU not implemented")
}
func (UnimplementedAnalyticsServiceServer) GetInstalls(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetInstalls not implemented")
}
func (UnimplementedAnalyticsServiceServer) GetRetention(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRetention not implemented")
}
func (UnimplementedAnalyticsServiceServer) GetFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetFeedback not implemented")
}

// RegisterAnalyticsServiceServer registers srv with s.
func RegisterAnalyticsServiceServer(s grpc.ServiceRegistrar, srv AnalyticsServiceServer) {
	s.RegisterService(&AnalyticsService_ServiceDesc, srv)
}

type unaryMethod func(AnalyticsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyticsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		h := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyticsServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, h)
	}
}

// AnalyticsService_ServiceDesc is the grpc.ServiceDesc for AnalyticsService.
var AnalyticsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyticsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Track", Handler: handler(AnalyticsService_Track_FullMethodName, AnalyticsServiceServer.Track)},
		{MethodName: "SubmitFeedback", Handler: handler(AnalyticsService_SubmitFeedback_FullMethodName, AnalyticsServiceServer.SubmitFeedback)},
		{MethodName: "ListApps", Handler: handler(AnalyticsService_ListApps_FullMethodName, AnalyticsServiceServer.ListApps)},
		{MethodName: "GetDAU", Handler: handler(AnalyticsService_GetDAU_FullMethodName, AnalyticsServiceServer.GetDAU)},
		{MethodName: "GetInstalls", Handler: handler(AnalyticsService_GetInstalls_FullMethodName, AnalyticsServiceServer.GetInstalls)},
		{MethodName: "GetRetention", Handler: handler(AnalyticsService_GetRetention_FullMethodName, AnalyticsServiceServer.GetRetention)},
		{MethodName: "GetFeedback", Handler: handler(AnalyticsService_GetFeedback_FullMethodName, AnalyticsServiceServer.GetFeedback)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appscope/v1/analytics.proto",
}

// AnalyticsServiceClient is the client API for AnalyticsService.
type AnalyticsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyticsServiceClient wraps cc.
func NewAnalyticsServiceClient(cc grpc.ClientConnInterface) *AnalyticsServiceClient {
	return &AnalyticsServiceClient{cc: cc}
}

func (c *AnalyticsServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalyticsServiceClient) Track(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_Track_FullMethodName, in, opts...)
}

func (c *AnalyticsServiceClient) SubmitFeedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_SubmitFeedback_FullMethodName, in, opts...)
}

func (c *AnalyticsServiceClient) ListApps(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_ListApps_FullMethodName, in, opts...)
}

func (c *AnalyticsServiceClient) GetDAU(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_GetDAU_FullMethodName, in, opts...)
}

func (c *AnalyticsServiceClient) GetInstalls(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_GetInstalls_FullMethodName, in, opts...)
}

func (c *AnalyticsServiceClient) GetRetention(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_GetRetention_FullMethodName, in, opts...)
}

func (c *AnalyticsServiceClient) GetFeedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AnalyticsService_GetFeedback_FullMethodName, in, opts...)
}

// Encode converts any JSON-marshalable value into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return s, nil
}

// Decode unmarshals a Struct into out through its JSON form.
func Decode(s *structpb.Struct, out any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
