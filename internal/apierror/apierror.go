// Package apierror provides the error kinds raised by the domain services and
// the JSON envelope used for every 4xx/5xx response.
// Internal details (DB errors, stack traces) never reach the client.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Each kind maps to exactly one HTTP status.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindDocumentsNotPurchased Kind = "DOCUMENTS_NOT_PURCHASED"
	KindPriceMismatch         Kind = "PRICE_MISMATCH"
	KindBidNotEligible        Kind = "BID_NOT_ELIGIBLE"
	KindTenderNotOpen         Kind = "TENDER_NOT_OPEN"
	KindInvalidAmount         Kind = "INVALID_AMOUNT"
	KindAllocationConflict    Kind = "ALLOCATION_CONFLICT"
	KindValidation            Kind = "VALIDATION"
)

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindDocumentsNotPurchased:
		return http.StatusForbidden
	case KindPriceMismatch, KindInvalidAmount, KindValidation:
		return http.StatusUnprocessableEntity
	case KindInvalidTransition, KindBidNotEligible, KindTenderNotOpen, KindAllocationConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain failure carrying its kind and a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a domain error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to a domain error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// NotFound reports a missing entity ("tender", "bid", "award letter", ...).
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// KindOf extracts the kind of a domain error anywhere in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Message string `json:"error"`
	Kind    Kind   `json:"kind,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Message: msg}
}

// FromError converts a domain error into the response envelope.
func FromError(e *Error) *APIError {
	return &APIError{Message: e.Message, Kind: e.Kind}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Message string            `json:"error"`
	Kind    Kind              `json:"kind"`
	Fields  map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "validation failed", Kind: KindValidation, Fields: fields}
}
