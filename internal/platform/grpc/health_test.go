package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWaitForHealthServing(t *testing.T) {
	addr, _ := startHealthServer(t)

	conn, err := Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "taskhub", nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
}

func TestWaitForHealthTransitionsToServing(t *testing.T) {
	addr, healthServer := startHealthServer(t)
	healthServer.SetServingStatus("taskhub", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	conn, err := Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	go func() {
		time.Sleep(200 * time.Millisecond)
		healthServer.SetServingStatus("taskhub", grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var attempts int
	logf := func(string, ...any) { attempts++ }
	if err := WaitForHealth(ctx, conn, "taskhub", logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if attempts == 0 {
		t.Fatal("expected at least one retry before SERVING")
	}
}

func TestWaitForHealthHonorsContext(t *testing.T) {
	addr, healthServer := startHealthServer(t)
	healthServer.SetServingStatus("taskhub", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	conn, err := Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "taskhub", nil); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWaitForHealthRequiresConn(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

func startHealthServer(t *testing.T) (string, *health.Server) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server, healthServer := NewHealthServer("taskhub")
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)
	return listener.Addr().String(), healthServer
}
