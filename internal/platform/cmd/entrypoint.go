// Package cmd holds the start-up steps shared by taskhub commands: config
// parsing and the telemetry lifecycle around a run loop.
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/louisbranch/taskhub/internal/platform/config"
	"github.com/louisbranch/taskhub/internal/platform/otel"
	"github.com/spf13/pflag"
)

// ServiceTaskhub identifies the taskhub API in telemetry and logs.
const ServiceTaskhub = "taskhub"

// telemetryFlushTimeout bounds how long pending spans may take to export on
// exit.
const telemetryFlushTimeout = 5 * time.Second

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags. Flags bound to fields already filled by
// ParseConfig override the environment.
func ParseArgs(fs *pflag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs tracing for the service, runs fn and flushes the
// exporter once fn returns.
func RunWithTelemetry(ctx context.Context, telemetry otel.Config, fn func(context.Context) error) error {
	name := strings.TrimSpace(telemetry.ServiceName)
	if name == "" {
		return errors.New("service name is required")
	}
	if fn == nil {
		return errors.New("run function is required")
	}
	shutdown, err := otel.Setup(ctx, telemetry)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Error("otel shutdown", "service", name, "error", err)
		}
	}()
	return fn(ctx)
}
