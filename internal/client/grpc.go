package client

import (
	"context"
	"fmt"

	appscopev1 "github.com/ooAKLoo/AppScope/gen/appscope/v1"
	"github.com/ooAKLoo/AppScope/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *appscopev1.AnalyticsServiceClient
	health healthpb.HealthClient
	keys   Keys
}

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr string, keys Keys, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: appscopev1.NewAnalyticsServiceClient(conn),
		health: healthpb.NewHealthClient(conn),
		keys:   keys,
	}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) withKey(ctx context.Context, header, key string) context.Context {
	if key == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, header, key)
}

func (c *GRPCClient) writeCtx(ctx context.Context) context.Context {
	return c.withKey(ctx, "x-write-key", c.keys.Write)
}

func (c *GRPCClient) readCtx(ctx context.Context) context.Context {
	return c.withKey(ctx, "x-read-key", c.keys.Read)
}

// --- Ingest ---

func (c *GRPCClient) Track(ctx context.Context, req *TrackRequest) error {
	in, err := appscopev1.Encode(req)
	if err != nil {
		return err
	}
	_, err = c.client.Track(c.writeCtx(ctx), in)
	return err
}

func (c *GRPCClient) SubmitFeedback(ctx context.Context, req *FeedbackRequest) error {
	in, err := appscopev1.Encode(req)
	if err != nil {
		return err
	}
	_, err = c.client.SubmitFeedback(c.writeCtx(ctx), in)
	return err
}

// --- Queries ---

func (c *GRPCClient) ListApps(ctx context.Context) ([]model.AppSummary, error) {
	resp, err := c.client.ListApps(c.readCtx(ctx), nil)
	if err != nil {
		return nil, err
	}
	var out appsResponse
	if err := appscopev1.Decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Apps, nil
}

func (c *GRPCClient) DAU(ctx context.Context, appID string, days int) ([]model.DauPoint, error) {
	in, err := appscopev1.Encode(map[string]any{"app_id": appID, "days": days})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.GetDAU(c.readCtx(ctx), in)
	if err != nil {
		return nil, err
	}
	var out dauResponse
	if err := appscopev1.Decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *GRPCClient) Installs(ctx context.Context, appID string, days int) (*model.InstallStats, error) {
	in, err := appscopev1.Encode(map[string]any{"app_id": appID, "days": days})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.GetInstalls(c.readCtx(ctx), in)
	if err != nil {
		return nil, err
	}
	var out model.InstallStats
	if err := appscopev1.Decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) Retention(ctx context.Context, appID string) ([]model.RetentionCohort, error) {
	in, err := appscopev1.Encode(map[string]any{"app_id": appID})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.GetRetention(c.readCtx(ctx), in)
	if err != nil {
		return nil, err
	}
	var out retentionResponse
	if err := appscopev1.Decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *GRPCClient) Feedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error) {
	in, err := appscopev1.Encode(map[string]any{"app_id": appID, "limit": limit})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.GetFeedback(c.readCtx(ctx), in)
	if err != nil {
		return nil, err
	}
	var out feedbackResponse
	if err := appscopev1.Decode(resp, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Health queries the standard gRPC health service.
func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: appscopev1.ServiceName})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
