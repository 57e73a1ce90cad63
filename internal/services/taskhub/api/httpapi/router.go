// Package httpapi exposes the taskhub service over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/platform/requestctx"
	"github.com/louisbranch/taskhub/internal/platform/timeouts"
	"github.com/louisbranch/taskhub/internal/services/taskhub/service"
)

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	ParseToken(raw string) (int64, error)
}

// Pinger reports storage readiness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires the handler dependencies.
type Config struct {
	Service *service.Service
	Tokens  TokenParser
	Health  Pinger
	Logger  *slog.Logger
	AppName string
	Version string
}

// Handler serves the taskhub HTTP API.
type Handler struct {
	svc     *service.Service
	tokens  TokenParser
	health  Pinger
	logger  *slog.Logger
	appName string
	version string
}

// handlerFunc is an endpoint that reports failures as errors.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// authedFunc is an endpoint that runs for an authenticated user.
type authedFunc func(w http.ResponseWriter, r *http.Request, userID int64) error

// NewHandler builds the routed and instrumented API handler.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Service == nil {
		return nil, errors.New("service is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token parser is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:     cfg.Service,
		tokens:  cfg.Tokens,
		health:  cfg.Health,
		logger:  logger,
		appName: cfg.AppName,
		version: cfg.Version,
	}

	mux := http.NewServeMux()
	h.routes(mux)
	return Chain(mux,
		RecoverPanic(logger),
		RequestID(),
		Tracing(),
		RequestLogger(logger),
	), nil
}

func (h *Handler) routes(mux *http.ServeMux) {
	mux.Handle("GET /health", h.public(h.getHealth))

	mux.Handle("POST /auth/register", h.public(h.register))
	mux.Handle("POST /auth/login", h.public(h.login))
	mux.Handle("GET /auth/me", h.authed(h.me))

	mux.Handle("POST /workspaces", h.authed(h.createWorkspace))
	mux.Handle("GET /workspaces", h.authed(h.listWorkspaces))
	mux.Handle("GET /workspaces/{w}", h.authed(h.getWorkspace))
	mux.Handle("DELETE /workspaces/{w}", h.authed(h.deleteWorkspace))

	mux.Handle("GET /workspaces/{w}/members", h.authed(h.listMembers))
	mux.Handle("POST /workspaces/{w}/members", h.authed(h.addMember))
	mux.Handle("PATCH /workspaces/{w}/members/{u}", h.authed(h.updateMemberRole))
	mux.Handle("DELETE /workspaces/{w}/members/{u}", h.authed(h.removeMember))

	mux.Handle("POST /workspaces/{w}/projects", h.authed(h.createProject))
	mux.Handle("GET /workspaces/{w}/projects", h.authed(h.listProjects))
	mux.Handle("GET /workspaces/{w}/projects/{p}", h.authed(h.getProject))
	mux.Handle("PATCH /workspaces/{w}/projects/{p}", h.authed(h.updateProject))
	mux.Handle("DELETE /workspaces/{w}/projects/{p}", h.authed(h.deleteProject))

	mux.Handle("POST /workspaces/{w}/projects/{p}/tasks", h.authed(h.createTask))
	mux.Handle("GET /workspaces/{w}/tasks", h.authed(h.listTasks))
	mux.Handle("GET /workspaces/{w}/tasks/{t}", h.authed(h.getTask))
	mux.Handle("PATCH /workspaces/{w}/tasks/{t}", h.authed(h.updateTask))
	mux.Handle("DELETE /workspaces/{w}/tasks/{t}", h.authed(h.deleteTask))
	mux.Handle("POST /workspaces/{w}/tasks/{t}/status-transitions", h.authed(h.transitionTask))

	mux.Handle("POST /workspaces/{w}/tasks/{t}/comments", h.authed(h.createComment))
	mux.Handle("GET /workspaces/{w}/tasks/{t}/comments", h.authed(h.listComments))
	mux.Handle("PATCH /workspaces/{w}/tasks/{t}/comments/{c}", h.authed(h.updateComment))
	mux.Handle("DELETE /workspaces/{w}/tasks/{t}/comments/{c}", h.authed(h.deleteComment))

	mux.Handle("POST /workspaces/{w}/tasks/{t}/tags", h.authed(h.addTag))
	mux.Handle("GET /workspaces/{w}/tasks/{t}/tags", h.authed(h.listTags))
	mux.Handle("DELETE /workspaces/{w}/tasks/{t}/tags/{tag}", h.authed(h.deleteTag))

	mux.Handle("POST /workspaces/{w}/tasks/{t}/watchers", h.authed(h.addWatcher))
	mux.Handle("GET /workspaces/{w}/tasks/{t}/watchers", h.authed(h.listWatchers))
	mux.Handle("DELETE /workspaces/{w}/tasks/{t}/watchers/{u}", h.authed(h.deleteWatcher))

	mux.Handle("GET /workspaces/{w}/audit-logs", h.authed(h.listAuditLogs))
}

func (h *Handler) public(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, h.logger, err)
		}
	})
}

// authed requires a valid bearer token and exposes the caller's id on the
// request context.
func (h *Handler) authed(fn authedFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.authenticate(r)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if noter, ok := w.(interface{ noteUser(int64) }); ok {
			noter.noteUser(userID)
		}
		r = r.WithContext(requestctx.WithUserID(r.Context(), userID))
		if err := fn(w, r, userID); err != nil {
			writeError(w, r, h.logger, err)
		}
	})
}

func (h *Handler) authenticate(r *http.Request) (int64, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return 0, apperrors.New(apperrors.CodeUnauthenticated, "not authenticated")
	}
	return h.tokens.ParseToken(strings.TrimSpace(token))
}

type healthResponse struct {
	Status  string `json:"status"`
	AppName string `json:"app_name"`
	Version string `json:"version"`
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) error {
	resp := healthResponse{Status: "healthy", AppName: h.appName, Version: h.version}
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.HealthCheck)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", "error", err)
			resp.Status = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return nil
		}
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}
