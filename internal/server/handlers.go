package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/profiled-project/profiled/internal/session"
)

// maxConfigBlobBytes bounds the accepted size of an encoded configuration.
const maxConfigBlobBytes = 4 << 20

// startRequest is the body of POST /v1/profiling/start.
type startRequest struct {
	DurationSecs uint32 `json:"duration_secs"`
	IntervalSecs uint32 `json:"interval_secs"`
	Iterations   uint32 `json:"iterations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed start request: "+err.Error())
		return
	}

	if err := s.ctrl.StartParams(req.DurationSecs, req.IntervalSecs, req.Iterations); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "started"})
}

func (s *Server) handleStartConfig(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBlobBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read config blob: "+err.Error())
		return
	}

	if err := s.ctrl.StartEncoded(blob); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "stopping"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.ctrl.Dump())
}

// writeControllerError maps the controller's outcome classes onto HTTP
// status codes: state-machine violations are conflicts, decode failures are
// bad requests.
func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	var decodeErr *session.DecodeError
	switch {
	case errors.Is(err, session.ErrAlreadyRunning), errors.Is(err, session.ErrNotRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &decodeErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Unexpected controller error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
