// Package server exposes the analytics engine over HTTP and gRPC.
package server

import (
	"errors"
	"log/slog"

	appscopev1 "github.com/ooAKLoo/AppScope/gen/appscope/v1"
	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/ooAKLoo/AppScope/internal/metrics"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Keys holds the shared secrets clients present. Write guards the ingest
// routes, Read guards every query route. An empty key disables its check.
type Keys struct {
	Write string
	Read  string
}

// AnalyticsServer serves the analytics engine on both gateways.
type AnalyticsServer struct {
	appscopev1.UnimplementedAnalyticsServiceServer
	engine  *analytics.Engine
	metrics *metrics.Metrics
	keys    Keys
}

// NewAnalyticsServer returns a server over engine. m may be nil.
func NewAnalyticsServer(engine *analytics.Engine, keys Keys, m *metrics.Metrics) *AnalyticsServer {
	return &AnalyticsServer{
		engine:  engine,
		metrics: m,
		keys:    keys,
	}
}

// grpcError maps engine errors to gRPC status errors.
func grpcError(err error) error {
	var inErr analytics.InputError
	var stErr *analytics.StorageError
	switch {
	case errors.As(err, &inErr):
		return status.Error(codes.InvalidArgument, inErr.Error())
	case errors.As(err, &stErr):
		slog.Error("storage error", "op", stErr.Op, "error", stErr.Err)
		return status.Error(codes.Internal, "database error")
	}
	return status.Errorf(codes.Internal, "internal error: %v", err)
}
