// Package errors renders API failures as RFC 7807 Problem Details
package errors

import (
	"errors"
	"net/http"
)

// ContentType is the media type of a problem response
const ContentType = "application/problem+json"

// Problem type URIs
const (
	TypeValidationError = "https://tradealerts.dev/problems/validation-error"
	TypeNotFound        = "https://tradealerts.dev/problems/not-found"
	TypeInternalError   = "https://tradealerts.dev/problems/internal-error"
	TypeUnavailable     = "https://tradealerts.dev/problems/service-unavailable"
)

// Problem titles
const (
	TitleValidationError = "Validation Error"
	TitleNotFound        = "Not Found"
	TitleInternalError   = "Internal Server Error"
	TitleUnavailable     = "Service Unavailable"
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"trace_id,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	if p.Detail == "" {
		return p.Title
	}
	return p.Title + ": " + p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// WithField records a rejected request field
func (p *ProblemDetails) WithField(field, message string) *ProblemDetails {
	p.Errors = append(p.Errors, FieldError{Field: field, Message: message})
	return p
}

// NewValidationError creates a validation error problem
func NewValidationError(detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     TypeValidationError,
		Title:    TitleValidationError,
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	}
}

// NewNotFoundError creates a not found error problem
func NewNotFoundError(detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     TypeNotFound,
		Title:    TitleNotFound,
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	}
}

// NewInternalError creates an internal server error problem
func NewInternalError(detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     TypeInternalError,
		Title:    TitleInternalError,
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	}
}

// NewServiceUnavailableError creates a service unavailable error problem
func NewServiceUnavailableError(detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     TypeUnavailable,
		Title:    TitleUnavailable,
		Status:   http.StatusServiceUnavailable,
		Detail:   detail,
		Instance: instance,
	}
}

// From returns err as a problem. Errors that are not already problems
// become internal errors.
func From(err error, instance string) *ProblemDetails {
	var p *ProblemDetails
	if errors.As(err, &p) {
		cp := *p
		if cp.Instance == "" {
			cp.Instance = instance
		}
		return &cp
	}
	return NewInternalError(err.Error(), instance)
}
