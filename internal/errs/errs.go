// Package errs defines the domain error taxonomy shared by the workflow engine
// and the gateway simulators. Simulators return these rather than panicking so
// callers can decide whether to roll back prior mutations.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP mapping and retry policy
type Kind int

const (
	KindValidation Kind = iota // 400
	KindForbidden              // 403
	KindNotFound               // 404
	KindConflict               // 409
	KindGateway                // 400, stable machine code, caller may retry
	KindInternal               // 500
)

// Error is a domain error with a kind and an optional stable machine code
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and code so sentinel comparisons work across wrapping
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Gateway builds a simulated gateway error carrying a stable machine code
// distinct from the human message
func Gateway(code, message string) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: message}
}

// Internal wraps an unexpected error; the message shown to callers never
// leaks the underlying cause
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the kind of err, defaulting to KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the machine code of err, if any
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Conflict codes used by the workflow engine and simulators
const (
	CodeEmptyCart            = "empty_cart"
	CodeInvalidProduct       = "invalid_product"
	CodeInsufficientStock    = "insufficient_stock"
	CodeAmountTooLow         = "amount_too_low"
	CodeAmountMismatch       = "amount_mismatch"
	CodeAlreadyConfirmed     = "already_confirmed"
	CodeNotPaid              = "not_paid"
	CodeRefundExceedsBalance = "refund_exceeds_balance"
	CodeAlreadyRefunded      = "already_refunded"
	CodeAlreadyInTransit     = "already_in_transit"
	CodeIllegalTransition    = "illegal_transition"
)
