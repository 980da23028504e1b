package server

import (
	"context"
	"net"
	"testing"

	appscopev1 "github.com/ooAKLoo/AppScope/gen/appscope/v1"
	"github.com/ooAKLoo/AppScope/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

// startBufconnServer serves a fresh AnalyticsServer over an in-memory
// listener and returns a connected client.
func startBufconnServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	s, _, _ := newTestServer()
	srv := NewGRPCServer(s)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCServer_EndToEnd(t *testing.T) {
	conn := startBufconnServer(t)
	client := appscopev1.NewAnalyticsServiceClient(conn)

	writeCtx := metadata.AppendToOutgoingContext(context.Background(), "x-write-key", testWriteKey)
	readCtx := metadata.AppendToOutgoingContext(context.Background(), "x-read-key", testReadKey)

	in, err := appscopev1.Encode(map[string]string{"app_id": "demo", "event": model.EventInstall, "user_id": "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Track(writeCtx, in); err != nil {
		t.Fatalf("Track: %v", err)
	}

	// The read key does not authorize writes.
	_, err = client.Track(readCtx, in)
	requireCode(t, err, codes.Unauthenticated)

	_, err = client.ListApps(context.Background(), nil)
	requireCode(t, err, codes.Unauthenticated)

	resp, err := client.ListApps(readCtx, nil)
	if err != nil {
		t.Fatalf("ListApps: %v", err)
	}
	var apps struct {
		Apps []model.AppSummary `json:"apps"`
	}
	if err := appscopev1.Decode(resp, &apps); err != nil {
		t.Fatal(err)
	}
	if len(apps.Apps) != 1 || apps.Apps[0] != (model.AppSummary{AppID: "demo", TotalInstalls: 1}) {
		t.Errorf("apps = %+v", apps.Apps)
	}

	req, _ := appscopev1.Encode(map[string]any{"app_id": "demo"})
	resp, err = client.GetInstalls(readCtx, req)
	if err != nil {
		t.Fatalf("GetInstalls: %v", err)
	}
	var installs model.InstallStats
	if err := appscopev1.Decode(resp, &installs); err != nil {
		t.Fatal(err)
	}
	if installs.Total != 1 || len(installs.Data) != 1 || installs.Data[0].Date != "2026-05-10" {
		t.Errorf("installs = %+v", installs)
	}
}

func TestGRPCServer_HealthExempt(t *testing.T) {
	conn := startBufconnServer(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: appscopev1.ServiceName,
	})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}
