package app

import (
	"fmt"
	"net/http"
)

// DomainError is the wire-visible error shape of the resume API: mapError
// renders it as {"code": ..., "error": ..., "details": ...} with the HTTP
// status it carries. Reconciliation errors are translated into the same
// envelope by mapError rather than wrapped here.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// validationFailed reports a 422 for catalog input, carrying the offending
// field names as details.
func validationFailed(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

// renderUnavailable is returned when no PDF pipeline is configured
// (MINIO_ENDPOINT unset disables rendering at startup).
func renderUnavailable() *DomainError {
	return domainError(http.StatusServiceUnavailable, "RENDER_UNAVAILABLE", "Rendering is not configured", nil)
}
