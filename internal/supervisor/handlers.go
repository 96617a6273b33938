// ===============================
// FILE: internal/supervisor/handlers.go
// ===============================

package supervisor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Router builds the control server's HTTP surface.
func (s *Supervisor) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Get("/status", s.handleStatus)
	return r
}

func (s *Supervisor) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Start(); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("Start request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Supervisor) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Stop(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("Stop request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Supervisor) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
