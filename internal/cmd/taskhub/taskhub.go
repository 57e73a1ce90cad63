// Package taskhub parses taskhub command configuration and starts the API.
package taskhub

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/taskhub/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/taskhub/internal/platform/grpc"
	"github.com/louisbranch/taskhub/internal/platform/logging"
	"github.com/louisbranch/taskhub/internal/platform/otel"
	server "github.com/louisbranch/taskhub/internal/services/taskhub/app"
	"github.com/spf13/pflag"
)

// devSecret signs tokens in dev mode when no secret is configured.
const devSecret = "taskhub-dev-secret"

// Config holds taskhub command configuration. Fields with an env tag read a
// TASKHUB_ prefixed variable and can be overridden by their flag.
type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr       string        `env:"GRPC_ADDR"`
	DBPath         string        `env:"DB_PATH" envDefault:"data/taskhub.db"`
	JWTSecret      string        `env:"JWT_SECRET"`
	Dev            bool          `env:"DEV"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"60m"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	SweepInterval  time.Duration `env:"IDEMPOTENCY_SWEEP_INTERVAL" envDefault:"1h"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`
	AppName        string        `env:"APP_NAME" envDefault:"taskhub"`
	AppVersion     string        `env:"APP_VERSION" envDefault:"dev"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
	OTelEnabled    bool          `env:"OTEL_ENABLED" envDefault:"true"`

	// HealthCheck switches the binary into a one-shot client that checks a
	// running server's gRPC health endpoint and exits.
	HealthCheck        bool
	HealthCheckTimeout time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *pflag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database file")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "Allow a built-in JWT secret for local development")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Access token lifetime")
	fs.DurationVar(&cfg.IdempotencyTTL, "idempotency-ttl", cfg.IdempotencyTTL, "How long idempotency keys are remembered")
	fs.DurationVar(&cfg.SweepInterval, "idempotency-sweep-interval", cfg.SweepInterval, "How often expired idempotency keys are purged")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or text")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Check the gRPC health endpoint of a running server and exit")
	fs.DurationVar(&cfg.HealthCheckTimeout, "healthcheck-timeout", cfg.HealthCheckTimeout, "How long --healthcheck waits for SERVING")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	if cfg.HealthCheck {
		return cfg, nil
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		if !cfg.Dev {
			return Config{}, errors.New("TASKHUB_JWT_SECRET is required unless --dev is set")
		}
		cfg.JWTSecret = devSecret
	}
	return cfg, nil
}

// Run configures logging and telemetry, then serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger, err := logging.Init(os.Stderr, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	if cfg.JWTSecret == devSecret {
		logger.Warn("using the built-in development JWT secret")
	}
	telemetry := otel.Config{
		ServiceName:    entrypoint.ServiceTaskhub,
		ServiceVersion: cfg.AppVersion,
		Endpoint:       cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
	}
	return entrypoint.RunWithTelemetry(ctx, telemetry, func(ctx context.Context) error {
		return server.Run(ctx, serverConfig(cfg, logger))
	})
}

// RunHealthCheck dials the gRPC health endpoint at cfg.GRPCAddr and waits
// until the API reports SERVING. Container runtimes run it as a liveness
// command.
func RunHealthCheck(ctx context.Context, cfg Config) error {
	addr := strings.TrimSpace(cfg.GRPCAddr)
	if addr == "" {
		return errors.New("healthcheck requires TASKHUB_GRPC_ADDR or --grpc-addr")
	}
	timeout := cfg.HealthCheckTimeout
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}
	conn, err := platformgrpc.Dial(dialTarget(addr))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return platformgrpc.WaitForHealth(ctx, conn, server.HealthService, nil)
}

const defaultHealthCheckTimeout = 5 * time.Second

// dialTarget turns a wildcard listen address into one a client can reach.
func dialTarget(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		return net.JoinHostPort("localhost", port)
	}
	return addr
}

func serverConfig(cfg Config, logger *slog.Logger) server.Config {
	return server.Config{
		HTTPAddr:       cfg.HTTPAddr,
		GRPCAddr:       cfg.GRPCAddr,
		DBPath:         cfg.DBPath,
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		IdempotencyTTL: cfg.IdempotencyTTL,
		SweepInterval:  cfg.SweepInterval,
		AppName:        cfg.AppName,
		Version:        cfg.AppVersion,
		Logger:         logger,
	}
}
