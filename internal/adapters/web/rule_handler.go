package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mkrull/lanscout/internal/core/domain"
	"github.com/mkrull/lanscout/internal/core/services/rules"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	list, err := s.Store.ListRules(r.Context(), enabledOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []domain.CustomAlertRule{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.CustomAlertRule
	if err := decodeBody(r, &rule); err != nil {
		writeError(w, err)
		return
	}
	if err := rules.ValidateRule(&rule); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.Store.CreateRule(r.Context(), rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rule, err := s.Store.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var upd domain.CustomRuleUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	if upd.Conditions != nil {
		if err := rules.ValidateConditions(upd.Conditions); err != nil {
			writeError(w, err)
			return
		}
	}
	if upd.Severity != nil && !domain.IsValidSeverity(*upd.Severity) {
		writeError(w, domain.ValidationError("unknown severity level"))
		return
	}

	updated, err := s.Store.UpdateRule(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Store.DeleteRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListBuiltinRules(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	list, err := s.Store.ListBuiltinRules(r.Context(), enabledOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateBuiltinRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var upd domain.BuiltinRuleUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	if upd.Severity != nil && !domain.IsValidSeverity(*upd.Severity) {
		writeError(w, domain.ValidationError("unknown severity level"))
		return
	}

	updated, err := s.Store.UpdateBuiltinRule(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
