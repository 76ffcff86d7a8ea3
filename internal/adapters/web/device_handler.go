package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkrull/lanscout/internal/core/domain"
)

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.Store.ListDevices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	device, err := s.Store.GetDevice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// deviceUpdateRequest carries the user-editable fields; nil means unchanged.
type deviceUpdateRequest struct {
	CustomName  *string            `json:"customName,omitempty"`
	IsTrusted   *bool              `json:"isTrusted,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	CustomProps *map[string]string `json:"customProps,omitempty"`
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req deviceUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	device, err := s.Store.GetDevice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.CustomName != nil {
		device.CustomName = *req.CustomName
	}
	if req.IsTrusted != nil {
		device.IsTrusted = *req.IsTrusted
	}
	if req.Notes != nil {
		device.Notes = *req.Notes
	}
	if req.CustomProps != nil {
		device.CustomProps = *req.CustomProps
	}

	stored, err := s.Store.UpsertDevice(r.Context(), *device)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Store.DeleteDevice(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleLatencyHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	window := time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeError(w, domain.ValidationError("window must be a positive duration"))
			return
		}
		window = parsed
	}

	points, err := s.Store.LatencyHistory(r.Context(), id, window)
	if err != nil {
		writeError(w, err)
		return
	}
	if points == nil {
		points = []domain.LatencyPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}
