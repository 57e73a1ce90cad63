package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
)

func invalidParam(name string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidInput,
		"invalid "+name, map[string]string{"Field": name})
}

// pathID parses a positive int64 path segment.
func pathID(r *http.Request, name string) (int64, error) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || value <= 0 {
		return 0, invalidParam(name)
	}
	return value, nil
}

func queryInt(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name)
	}
	return value, nil
}

func queryID(values url.Values, name string) (*int64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return nil, invalidParam(name)
	}
	return &value, nil
}

func queryTime(values url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, invalidParam(name)
	}
	return &value, nil
}
