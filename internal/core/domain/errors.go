package domain

import (
	"errors"
	"fmt"
)

// Error categories. AppError wraps exactly one of these so callers can branch
// with errors.Is without matching on codes.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrProbe       = errors.New("probe failed")
	ErrPersistence = errors.New("persistence error")
)

// AppError is the structured error surfaced at the API boundary:
// a stable code plus a human-readable message, never a raw error string.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`

	category error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.category
}

// ValidationError reports malformed input (bad condition, depth exceeded,
// invalid CIDR/MAC pattern).
func ValidationError(message string) *AppError {
	return &AppError{Code: "INVALID_INPUT", Message: message, category: ErrValidation}
}

// NotFoundError reports an absent rule or device id.
func NotFoundError(kind, id string) *AppError {
	return &AppError{
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s %q not found", kind, id),
		category: ErrNotFound,
	}
}

// ConflictError reports a scan-already-running rejection.
func ConflictError(message string) *AppError {
	return &AppError{Code: "SCAN_IN_PROGRESS", Message: message, category: ErrConflict}
}

// ProbeError reports a single failed network operation. Non-fatal: callers
// log it and treat the data as absent.
func ProbeError(operation string, err error) *AppError {
	return &AppError{
		Code:     "PROBE_FAILED",
		Message:  fmt.Sprintf("%s failed", operation),
		Details:  err.Error(),
		category: ErrProbe,
	}
}

// PersistenceError reports a store failure, fatal to the in-flight operation.
func PersistenceError(operation string, err error) *AppError {
	return &AppError{
		Code:     "DATABASE_ERROR",
		Message:  fmt.Sprintf("%s failed", operation),
		Details:  err.Error(),
		category: ErrPersistence,
	}
}

// ScanFailedError reports an unrecoverable orchestrator failure.
func ScanFailedError(message string, err error) *AppError {
	e := &AppError{Code: "SCAN_FAILED", Message: message}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}
