package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/weatherstation-core/internal/telemetry"
)

// DiagnosticsResponse reports the service state and the controller's
// last error report.
type DiagnosticsResponse struct {
	State       telemetry.State  `json:"state"`
	ErrorReport string           `json:"error_report"`
	Stats       telemetry.Stats  `json:"stats"`
	LastFault   *telemetry.Event `json:"last_fault,omitempty"`
}

// StateResponse is returned by the lifecycle endpoints.
type StateResponse struct {
	State telemetry.State `json:"state"`
}

// handleGetTelemetry returns the latest snapshot.
func (s *Server) handleGetTelemetry(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.service.Latest()
	if !ok {
		writeNotFound(w, "no telemetry published yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetTopic returns one topic of the latest snapshot.
func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")

	snap, ok := s.service.Latest()
	if !ok {
		writeNotFound(w, "no telemetry published yet")
		return
	}
	if _, ok := snap.Data[topic]; !ok {
		writeNotFound(w, "unknown topic: "+topic)
		return
	}
	writeJSON(w, http.StatusOK, snap.Message(topic))
}

// handleGetDiagnostics returns the error report and service state.
func (s *Server) handleGetDiagnostics(w http.ResponseWriter, _ *http.Request) {
	resp := DiagnosticsResponse{
		State:       s.service.State(),
		ErrorReport: s.service.ErrorReport(),
		Stats:       s.service.Stats(),
	}
	if ev, ok := s.service.LastFault(); ok {
		resp.LastFault = &ev
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResetDiagnostics clears the controller's error report.
func (s *Server) handleResetDiagnostics(w http.ResponseWriter, _ *http.Request) {
	s.service.ResetError()
	w.WriteHeader(http.StatusNoContent)
}

// handleEnable starts the telemetry loop. In live tcp mode this waits for
// the station to connect, bounded by the request context.
func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Enable(r.Context()); err != nil {
		if errors.Is(err, telemetry.ErrFaulted) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("enable failed", "error", err)
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: s.service.State()})
}

// handleDisable stops the telemetry loop.
func (s *Server) handleDisable(w http.ResponseWriter, _ *http.Request) {
	if err := s.service.Disable(); err != nil {
		s.logger.Error("disable failed", "error", err)
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: s.service.State()})
}

// handleClearFault returns a faulted service to disabled.
func (s *Server) handleClearFault(w http.ResponseWriter, _ *http.Request) {
	if err := s.service.ClearFault(); err != nil {
		if errors.Is(err, telemetry.ErrNotFaulted) {
			writeConflict(w, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: s.service.State()})
}

// handleGetSchema returns the schema leaves and the topic map.
func (s *Server) handleGetSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"leaves": s.schema.Leaves(),
		"topics": s.topics,
	})
}
