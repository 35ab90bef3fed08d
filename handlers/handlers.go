// Package handlers provides HTTP request handlers for the PharmaTrack API endpoints.
// It includes handlers for medicine lookup and search, alternatives, interaction checks
// and health checks, with input validation and consistent JSON error responses.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
	"github.com/NandaniSingh69/PharmaTrack/logging"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// respondWithEngineError maps recommendation and store failures to HTTP statuses
func respondWithEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, alternatives.ErrInvalidInput):
		RespondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, alternatives.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, "Medicine not found")

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logging.Warn("Request did not complete in time", "path", r.URL.Path, "error", err)
		RespondWithError(w, http.StatusGatewayTimeout, "The request timed out, please retry")

	case errors.Is(err, alternatives.ErrStoreUnavailable):
		logging.Error("Catalog store unavailable", "path", r.URL.Path, "error", err)
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog temporarily unavailable")

	default:
		logging.Error("Unexpected request failure", "path", r.URL.Path, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// storeError wraps a direct store failure so it maps like an engine store failure
func storeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", alternatives.ErrStoreUnavailable, err)
}

// invalidParam builds the error reported for a malformed query parameter
func invalidParam(name, value, want string) error {
	return fmt.Errorf("%w: %s must be %s, got %q", alternatives.ErrInvalidInput, name, want, value)
}

// floatParam reads an optional finite float query parameter
func floatParam(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, invalidParam(name, raw, "a number")
	}
	return &v, nil
}

// intParam reads an optional integer query parameter
func intParam(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidParam(name, raw, "an integer")
	}
	return &v, nil
}

// boolParam reads an optional boolean query parameter
func boolParam(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, invalidParam(name, raw, "true or false")
	}
	return &v, nil
}

// categoryParam reads the category filter. "All" and empty mean no filter.
func categoryParam(r *http.Request) string {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if strings.EqualFold(category, "all") {
		return ""
	}
	return category
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
