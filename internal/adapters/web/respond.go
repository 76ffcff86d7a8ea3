package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mkrull/lanscout/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

// writeError maps the error taxonomy onto HTTP statuses and always emits the
// structured {code, message} shape, never a raw error string.
func writeError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = &domain.AppError{Code: "INTERNAL_ERROR", Message: "internal error"}
		log.Printf("Unclassified error reached the API boundary: %v", err)
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrProbe):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, appErr)
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ValidationError("request body is not valid JSON: " + err.Error())
	}
	return nil
}
