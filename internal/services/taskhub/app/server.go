package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/taskhub/internal/platform/grpc"
	"github.com/louisbranch/taskhub/internal/platform/timeouts"
	"github.com/louisbranch/taskhub/internal/services/taskhub/api/httpapi"
	"github.com/louisbranch/taskhub/internal/services/taskhub/audit"
	"github.com/louisbranch/taskhub/internal/services/taskhub/authn"
	"github.com/louisbranch/taskhub/internal/services/taskhub/idempotency"
	"github.com/louisbranch/taskhub/internal/services/taskhub/service"
	"github.com/louisbranch/taskhub/internal/services/taskhub/storage/sqlite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// HealthService is the gRPC health service name reported as SERVING.
const HealthService = "taskhub.v1.TaskHub"

// Config describes one taskhub process.
type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	DBPath         string
	JWTSecret      string
	TokenTTL       time.Duration
	IdempotencyTTL time.Duration
	SweepInterval  time.Duration
	AppName        string
	Version        string
	Logger         *slog.Logger
}

// Server hosts the taskhub service.
type Server struct {
	httpListener  net.Listener
	httpServer    *http.Server
	grpcListener  net.Listener
	grpcServer    *grpc.Server
	health        *health.Server
	store         *sqlite.Store
	svc           *service.Service
	sweepInterval time.Duration
	logger        *slog.Logger
}

// New opens storage, binds listeners and wires the HTTP API.
func New(ctx context.Context, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open taskhub store: %w", err)
	}
	auth, err := authn.NewProvider(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	svc, err := service.New(service.Config{
		Store:  store,
		Auth:   auth,
		Ledger: idempotency.NewLedger(cfg.IdempotencyTTL, nil),
		Audit:  audit.NewRecorder(nil),
		Logger: logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build service: %w", err)
	}
	handler, err := httpapi.NewHandler(httpapi.Config{
		Service: svc,
		Tokens:  auth,
		Health:  store,
		Logger:  logger,
		AppName: cfg.AppName,
		Version: cfg.Version,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build http handler: %w", err)
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}

	s := &Server{
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
			IdleTimeout:       timeouts.HTTPIdle,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		store:         store,
		svc:           svc,
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
	}

	if strings.TrimSpace(cfg.GRPCAddr) != "" {
		grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			_ = httpListener.Close()
			_ = store.Close()
			return nil, fmt.Errorf("listen on grpc addr %s: %w", cfg.GRPCAddr, err)
		}
		s.grpcListener = grpcListener
		s.grpcServer, s.health = platformgrpc.NewHealthServer(HealthService)
	}
	return s, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the health listener address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a taskhub server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve starts the listeners and blocks until one fails or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeStore()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.runSweeper(serverCtx)
	}()
	defer func() {
		cancel()
		<-sweepDone
	}()

	s.logger.Info("taskhub HTTP server listening", "addr", s.Addr())
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	grpcErr := make(chan error, 1)
	if s.grpcServer != nil {
		s.logger.Info("taskhub gRPC health listening", "addr", s.GRPCAddr())
		go func() {
			grpcErr <- s.grpcServer.Serve(s.grpcListener)
		}()
	}

	shutdownGRPC := func() {
		if s.grpcServer == nil {
			return
		}
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}
	handleHTTPErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownGRPC()
		shutdownHTTP()
		return handleHTTPErr(<-httpErr)
	case err := <-httpErr:
		shutdownGRPC()
		return handleHTTPErr(err)
	case err := <-grpcErr:
		shutdownHTTP()
		<-httpErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// runSweeper purges expired idempotency records every sweep interval. A
// non-positive interval disables it.
func (s *Server) runSweeper(ctx context.Context) {
	if s.sweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Server) sweepOnce(ctx context.Context) {
	removed, err := s.svc.PurgeExpiredIdempotency(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("idempotency sweep failed", "error", err)
		}
		return
	}
	if removed > 0 {
		s.logger.Info("idempotency sweep", "removed", removed)
	}
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close taskhub store", "error", err)
	}
}
