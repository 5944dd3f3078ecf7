// Package request provides parsing helpers for URL and query parameters.
package request

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ParseID parses a positive numeric path value.
func ParseID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// ParseDate parses a YYYY-MM-DD query parameter and anchors it at noon UTC
// so day-of-week derivation is stable across DST boundaries.
func ParseDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s parameter", name)
	}

	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", name, raw)
	}

	return day.Add(12 * time.Hour), nil
}

// ParsePage reads page/pageSize query parameters, falling back to defaults
// for missing or malformed values.
func ParsePage(r *http.Request, defaultSize int) (page, pageSize int) {
	page = queryInt(r, "page", 1)
	pageSize = queryInt(r, "pageSize", defaultSize)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	return page, pageSize
}

// OptionalID parses an optional numeric query parameter, returning 0 when
// absent.
func OptionalID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
