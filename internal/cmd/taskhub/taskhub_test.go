package taskhub

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	server "github.com/louisbranch/taskhub/internal/services/taskhub/app"
	"github.com/spf13/pflag"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "secret")

	fs := pflag.NewFlagSet("taskhub", pflag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "data/taskhub.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.TokenTTL != time.Hour || cfg.IdempotencyTTL != 24*time.Hour || cfg.SweepInterval != time.Hour {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected log settings: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "secret")
	t.Setenv("TASKHUB_HTTP_ADDR", "env-http")
	t.Setenv("TASKHUB_TOKEN_TTL", "15m")

	fs := pflag.NewFlagSet("taskhub", pflag.ContinueOnError)
	args := []string{"--http-addr", "flag-http", "--grpc-addr=:9090", "--log-format", "text"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Fatalf("expected grpc addr, got %q", cfg.GRPCAddr)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("expected env token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected text log format, got %q", cfg.LogFormat)
	}
}

func TestParseConfigRequiresSecret(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "")

	fs := pflag.NewFlagSet("taskhub", pflag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected missing secret to fail")
	}

	fs = pflag.NewFlagSet("taskhub", pflag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"--dev"})
	if err != nil {
		t.Fatalf("parse dev config: %v", err)
	}
	if cfg.JWTSecret != devSecret {
		t.Fatalf("expected dev secret, got %q", cfg.JWTSecret)
	}
}

func TestParseConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "secret")
	t.Setenv("TASKHUB_IDEMPOTENCY_TTL", "forever")

	fs := pflag.NewFlagSet("taskhub", pflag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected invalid duration to fail")
	}
}

func TestServerConfigCarriesSettings(t *testing.T) {
	cfg := Config{
		HTTPAddr:       ":1",
		GRPCAddr:       ":2",
		DBPath:         "db",
		JWTSecret:      "s",
		TokenTTL:       time.Minute,
		IdempotencyTTL: time.Hour,
		SweepInterval:  time.Second,
		AppName:        "hub",
		AppVersion:     "v1",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := serverConfig(cfg, logger)
	if got.HTTPAddr != ":1" || got.GRPCAddr != ":2" || got.DBPath != "db" || got.JWTSecret != "s" {
		t.Fatalf("unexpected addresses: %+v", got)
	}
	if got.TokenTTL != time.Minute || got.IdempotencyTTL != time.Hour || got.SweepInterval != time.Second {
		t.Fatalf("unexpected durations: %+v", got)
	}
	if got.AppName != "hub" || got.Version != "v1" || got.Logger != logger {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestParseConfigHealthCheckSkipsSecret(t *testing.T) {
	t.Setenv("TASKHUB_JWT_SECRET", "")
	t.Setenv("TASKHUB_GRPC_ADDR", ":9090")

	fs := pflag.NewFlagSet("taskhub", pflag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"--healthcheck", "--healthcheck-timeout=2s"})
	if err != nil {
		t.Fatalf("parse healthcheck config: %v", err)
	}
	if !cfg.HealthCheck || cfg.HealthCheckTimeout != 2*time.Second || cfg.GRPCAddr != ":9090" {
		t.Fatalf("unexpected healthcheck config: %+v", cfg)
	}
}

func TestDialTarget(t *testing.T) {
	tests := map[string]string{
		":9090":          "localhost:9090",
		"0.0.0.0:9090":   "localhost:9090",
		"[::]:9090":      "localhost:9090",
		"10.0.0.5:9090":  "10.0.0.5:9090",
		"api.local:9090": "api.local:9090",
	}
	for in, want := range tests {
		if got := dialTarget(in); got != want {
			t.Fatalf("dialTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunHealthCheckRequiresAddr(t *testing.T) {
	if err := RunHealthCheck(context.Background(), Config{HealthCheck: true}); err == nil {
		t.Fatal("expected missing grpc addr to fail")
	}
}

func TestRunHealthCheckAgainstServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(context.Background(), server.Config{
		HTTPAddr:  "127.0.0.1:0",
		GRPCAddr:  "127.0.0.1:0",
		DBPath:    filepath.Join(t.TempDir(), "taskhub.db"),
		JWTSecret: "healthcheck-secret",
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	}()

	cfg := Config{HealthCheck: true, GRPCAddr: srv.GRPCAddr(), HealthCheckTimeout: 5 * time.Second}
	if err := RunHealthCheck(context.Background(), cfg); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
}

func TestRunHealthCheckTimesOutWithoutServer(t *testing.T) {
	cfg := Config{HealthCheck: true, GRPCAddr: "127.0.0.1:1", HealthCheckTimeout: 200 * time.Millisecond}
	if err := RunHealthCheck(context.Background(), cfg); err == nil {
		t.Fatal("expected healthcheck against a closed port to fail")
	}
}
