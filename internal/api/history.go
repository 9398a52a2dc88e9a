package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// handleListCycles returns the most recent cycles.
func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.historyLimit(w, r)
	if !ok {
		return
	}
	cycles, err := s.history.ListCycles(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing cycles failed", "error", err)
		writeInternalError(w, "failed to load cycles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": cycles,
		"count":  len(cycles),
	})
}

// handleListFaults returns the most recent faults.
func (s *Server) handleListFaults(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.historyLimit(w, r)
	if !ok {
		return
	}
	faults, err := s.history.ListFaults(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing faults failed", "error", err)
		writeInternalError(w, "failed to load faults")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"faults": faults,
		"count":  len(faults),
	})
}

// historyLimit checks the history store is present and parses ?limit.
// It writes the error response itself when it returns false.
func (s *Server) historyLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history unavailable")
		return 0, false
	}
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return 0, false
	}
	return limit, true
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
