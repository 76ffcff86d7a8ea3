package web

import (
	"net/http"
	"strconv"

	"github.com/mkrull/lanscout/internal/core/domain"
)

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ScanConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	if cfg.Type == "" {
		cfg.Type = domain.ScanQuick
	}
	switch cfg.Type {
	case domain.ScanQuick, domain.ScanFull, domain.ScanPortOnly, domain.ScanPassive:
	default:
		writeError(w, domain.ValidationError("unknown scan type"))
		return
	}

	started, err := s.Orchestrator.Start(r.Context(), cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, started)
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	if err := s.Orchestrator.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleCurrentScan(w http.ResponseWriter, r *http.Request) {
	current := s.Orchestrator.Current()
	if current == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"running": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"running": true, "scan": current})
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, domain.ValidationError("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	scans, err := s.Store.ListScans(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if scans == nil {
		scans = []domain.Scan{}
	}
	writeJSON(w, http.StatusOK, scans)
}
