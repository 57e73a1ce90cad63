// Package pagination normalizes skip/limit and sort parameters for list
// endpoints.
package pagination

import (
	"fmt"
	"slices"
	"strings"
)

// LimitConfig configures limit normalization.
type LimitConfig struct {
	Default int
	Max     int
}

// DefaultLimits is the limit policy used by every taskhub listing.
var DefaultLimits = LimitConfig{Default: 20, Max: 100}

// SortConfig configures sort key validation.
type SortConfig struct {
	Default string
	Allowed []string
}

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ClampLimit applies defaults and bounds to a requested limit. A missing
// (zero) limit becomes the default and the result is always within 1..Max.
func ClampLimit(value int, cfg LimitConfig) int {
	limit := value
	if limit == 0 {
		limit = cfg.Default
	}
	if cfg.Max > 0 && limit > cfg.Max {
		limit = cfg.Max
	}
	if limit <= 0 {
		limit = 1
	}
	return limit
}

// ClampSkip rejects negative offsets.
func ClampSkip(value int) (int, error) {
	if value < 0 {
		return 0, fmt.Errorf("skip must be >= 0")
	}
	return value, nil
}

// NormalizeSort validates a sort key and applies the default.
func NormalizeSort(key string, cfg SortConfig) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return cfg.Default, nil
	}
	if slices.Contains(cfg.Allowed, key) {
		return key, nil
	}
	return "", fmt.Errorf("invalid sort_by: %s", key)
}

// ParseOrder validates a sort direction, defaulting to fallback.
func ParseOrder(value string, fallback Order) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return fallback, nil
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid sort_order: %s", value)
	}
}

// SQL returns the direction keyword.
func (o Order) SQL() string {
	if o == Asc {
		return "ASC"
	}
	return "DESC"
}
