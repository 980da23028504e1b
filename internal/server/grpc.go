package server

import (
	"context"

	appscopev1 "github.com/ooAKLoo/AppScope/gen/appscope/v1"
	"github.com/ooAKLoo/AppScope/internal/analytics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the AnalyticsService, health, reflection, and returns the server
// ready to serve.
func NewGRPCServer(s *AnalyticsServer) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(s.keys),
		),
	)

	appscopev1.RegisterAnalyticsServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(appscopev1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)

	return srv
}

// statsRequest is the request shape shared by the query RPCs.
type statsRequest struct {
	AppID string `json:"app_id"`
	Days  *int   `json:"days"`
	Limit *int   `json:"limit"`
}

func decodeStatsRequest(req *structpb.Struct, needApp bool) (*statsRequest, error) {
	var in statsRequest
	if err := appscopev1.Decode(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if needApp && in.AppID == "" {
		return nil, status.Error(codes.InvalidArgument, "app_id is required")
	}
	return &in, nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func encodeResponse(v any) (*structpb.Struct, error) {
	s, err := appscopev1.Encode(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// Track records one event.
func (s *AnalyticsServer) Track(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in analytics.TrackInput
	if err := appscopev1.Decode(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if _, err := s.engine.Track(ctx, in); err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]bool{"success": true})
}

// SubmitFeedback records one feedback entry.
func (s *AnalyticsServer) SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in analytics.FeedbackInput
	if err := appscopev1.Decode(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if _, err := s.engine.SubmitFeedback(ctx, in); err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]bool{"success": true})
}

// ListApps returns every known application.
func (s *AnalyticsServer) ListApps(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	apps, err := s.engine.ListApplications(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]any{"apps": apps})
}

// GetDAU returns the daily active user series.
func (s *AnalyticsServer) GetDAU(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeStatsRequest(req, true)
	if err != nil {
		return nil, err
	}
	points, err := s.engine.DAU(ctx, in.AppID, intOr(in.Days, analytics.DefaultDays))
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]any{"data": points})
}

// GetInstalls returns the install total and daily series.
func (s *AnalyticsServer) GetInstalls(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeStatsRequest(req, true)
	if err != nil {
		return nil, err
	}
	stats, err := s.engine.Installs(ctx, in.AppID, intOr(in.Days, analytics.DefaultDays))
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(stats)
}

// GetRetention returns retention cohorts, newest first.
func (s *AnalyticsServer) GetRetention(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeStatsRequest(req, true)
	if err != nil {
		return nil, err
	}
	cohorts, err := s.engine.Retention(ctx, in.AppID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]any{"data": cohorts})
}

// GetFeedback returns recent feedback, newest first.
func (s *AnalyticsServer) GetFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeStatsRequest(req, true)
	if err != nil {
		return nil, err
	}
	items, err := s.engine.Feedback(ctx, in.AppID, intOr(in.Limit, analytics.DefaultFeedbackLimit))
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]any{"data": items})
}
