package helpers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseTimeParam reads an optional RFC 3339 timestamp or YYYY-MM-DD date from the query string.
// A bare date means midnight UTC. An empty parameter yields nil.
func ParseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
	}
	return &t, nil
}

// ParseBoolParam reads an optional boolean query parameter; missing or malformed values are false.
func ParseBoolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// ParseIntParam reads an optional integer query parameter, falling back to def.
func ParseIntParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
