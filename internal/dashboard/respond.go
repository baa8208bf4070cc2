package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bot-dashboard/internal/query"

	"github.com/rs/zerolog/log"
)

const (
	msgManagerMissing = "Bot manager not initialized"
	msgCloseMissing   = "Bot manager not available"
)

// envelope is embedded in every JSON response; the payload's own fields sit
// next to it.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

var succeeded = envelope{Success: true}

// outcome maps a query error onto a status code and envelope.
func outcome(err error) (int, envelope) {
	if err == nil {
		return http.StatusOK, succeeded
	}
	return statusFor(err), envelope{Error: err.Error()}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: msg})
}

// intParam reads a positive integer query parameter no larger than limit,
// or def when absent.
func intParam(r *http.Request, name string, def, limit int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	if v > limit {
		return 0, fmt.Errorf("%s must be at most %d", name, limit)
	}
	return v, nil
}
