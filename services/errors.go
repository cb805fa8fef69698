package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to clients alongside the human-readable message
const (
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeValidation   = "validation_error"
	CodeUpstream     = "upstream_error"
	CodeSignature    = "signature_error"
)

// APIError is a locally detected failure with a machine-stable code and the
// HTTP status handlers should respond with.
type APIError struct {
	Code    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewNotFound builds a 404 error
func NewNotFound(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewForbidden builds a 403 error
func NewForbidden(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeForbidden, Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

// NewConflict builds a 409 error
func NewConflict(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeConflict, Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// NewValidation builds a 400 error
func NewValidation(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// AsAPIError unwraps an error chain looking for an APIError
func AsAPIError(err error, target **APIError) bool {
	return errors.As(err, target)
}
