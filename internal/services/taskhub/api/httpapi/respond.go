package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"github.com/louisbranch/taskhub/internal/platform/requestctx"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// writeJSON writes payload with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeRaw writes an already-encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Detail: "internal server error",
		Code:   string(apperrors.CodeUnknown),
	})
}

// writeError maps err to its HTTP status. Errors without a code are logged and
// reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind() == apperrors.KindInternal {
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestctx.RequestIDFromContext(r.Context()),
		}
		if userID, ok := requestctx.UserIDFromContext(r.Context()); ok {
			attrs = append(attrs, "user_id", userID)
		}
		logger.ErrorContext(r.Context(), "request failed", append(attrs, "error", err)...)
		writeInternalError(w)
		return
	}
	if appErr.Kind() == apperrors.KindUnauthenticated {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, appErr.Kind().HTTPStatus(), errorBody{
		Detail: appErr.Message,
		Code:   string(appErr.Code),
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperrors.InvalidInput("request body is required")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperrors.WithMetadata(apperrors.CodeInvalidInput,
				fmt.Sprintf("invalid value for %s", typeErr.Field),
				map[string]string{"Field": typeErr.Field})
		}
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid JSON body", err)
	}
	return nil
}

func isFormRequest(r *http.Request) bool {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}
