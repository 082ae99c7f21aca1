// Package apperr defines the error kinds raised by the stock and order core.
// Every kind carries a stable code that the HTTP layer turns into a status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindForbiddenTransition Kind = "forbidden_transition"
	KindOverpayment         Kind = "overpayment"
	KindConflict            Kind = "conflict"
	KindPermissionDenied    Kind = "permission_denied"
	KindInternal            Kind = "internal"
)

var codes = map[Kind]string{
	KindValidation:          "ERR_VALIDATION",
	KindNotFound:            "ERR_NOT_FOUND",
	KindInsufficientStock:   "ERR_INSUFFICIENT_STOCK",
	KindForbiddenTransition: "ERR_FORBIDDEN_TRANSITION",
	KindOverpayment:         "ERR_OVERPAYMENT",
	KindConflict:            "ERR_CONFLICT",
	KindPermissionDenied:    "ERR_FORBIDDEN",
	KindInternal:            "ERR_INTERNAL",
}

// Error is a classified application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the stable error code of the kind
func (e *Error) Code() string {
	return CodeOf(e.Kind)
}

// CodeOf returns the stable code for a kind
func CodeOf(k Kind) string {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[KindInternal]
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

func ForbiddenTransition(format string, args ...interface{}) *Error {
	return newf(KindForbiddenTransition, format, args...)
}

func Overpayment(format string, args ...interface{}) *Error {
	return newf(KindOverpayment, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func PermissionDenied(format string, args ...interface{}) *Error {
	return newf(KindPermissionDenied, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
