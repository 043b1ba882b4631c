// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Codigo classifies every error the core can produce. Codes are part of the
// API contract: clients branch on them, so they never change.
type Codigo string

const (
	// CodigoValidacion: bad input shape or range. Rejected before any side effect.
	CodigoValidacion Codigo = "validation_error"
	// CodigoPrecondicion: state prevents the operation (caja cerrada, stock
	// insuficiente, numeración agotada). Recoverable by fixing state and retrying.
	CodigoPrecondicion Codigo = "precondition_failed"
	// CodigoConsistencia: the aggregate would violate an invariant
	// (pagos ≠ total, combinación de pagos inválida).
	CodigoConsistencia Codigo = "consistency_violation"
	// CodigoInfraestructura: fatal fault in the store or its configuration.
	// Not retryable by the same code path; the detail must tell the operator
	// what to fix.
	CodigoInfraestructura Codigo = "infrastructure_fault"
)

// Error is the typed error services return. It doubles as the JSON envelope
// for 4xx/5xx responses.
type Error struct {
	Code   Codigo `json:"code"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string { return e.Detail }

func Validacion(detail string) *Error {
	return &Error{Code: CodigoValidacion, Detail: detail}
}

func Precondicion(detail string) *Error {
	return &Error{Code: CodigoPrecondicion, Detail: detail}
}

func Consistencia(detail string) *Error {
	return &Error{Code: CodigoConsistencia, Detail: detail}
}

func Infraestructura(detail string) *Error {
	return &Error{Code: CodigoInfraestructura, Detail: detail}
}

// New keeps the short constructor used by handlers for bind errors.
func New(msg string) *Error { return Validacion(msg) }

// CodigoDe extracts the classification from an error chain. Unclassified
// errors are infrastructure faults: nothing internal should leak unlabeled.
func CodigoDe(err error) Codigo {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodigoInfraestructura
}

// HTTPStatus maps the taxonomy to response codes.
func HTTPStatus(err error) int {
	switch CodigoDe(err) {
	case CodigoValidacion:
		return http.StatusBadRequest
	case CodigoPrecondicion:
		return http.StatusConflict
	case CodigoConsistencia:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Envelope builds the JSON body for an error response without exposing
// internals: typed errors pass through, anything else becomes a generic 500.
func Envelope(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Infraestructura("Error interno del servidor")
}

// ValidationError wraps multiple field errors from DTO validation.
type ValidationError struct {
	Code   Codigo            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodigoValidacion, Detail: "Error de validacion", Fields: fields}
}
