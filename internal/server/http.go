package server

import (
	"net/http"
	"strconv"

	"github.com/zeusync/robosim/internal/core/observability/log"
)

// handleSnapshot serves the latest snapshot as JSON.
func (s *Stream) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	f := s.latest.Load()
	if f == nil {
		http.Error(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Robosim-Step", strconv.FormatUint(f.steps, 10))
	if _, err := w.Write(f.data); err != nil {
		s.logger.Debug("Failed to write snapshot", log.Error(err))
	}
}
