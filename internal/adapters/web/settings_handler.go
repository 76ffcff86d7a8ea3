package web

import (
	"net/http"

	"github.com/mkrull/lanscout/internal/core/domain"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Store.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, err)
		return
	}
	if settings.ScanIntervalSecs < 10 {
		writeError(w, domain.ValidationError("scan interval must be at least 10 seconds"))
		return
	}
	if settings.PortRange == "" {
		settings.PortRange = domain.DefaultSettings().PortRange
	}

	if err := s.Store.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
