// Package apperr defines the closed set of failures that resource services
// return to the request boundary. Each kind carries an HTTP-style status and
// a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind enumerates the failure categories.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindConflict
)

// Sentinels for errors.Is matching by kind:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrConflict        = &Error{Kind: KindConflict}
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a typed service failure.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	// Err is the underlying cause. It is for logs only and never rendered.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code(), msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code(), msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Code returns the stable machine-readable code.
func (e *Error) Code() string {
	switch e.Kind {
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthenticated:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindConflict:
		return "CONFLICT"
	}
	return "INTERNAL_ERROR"
}

// PublicMessage is the message safe to show to a caller.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return defaultMessage(e.Kind)
}

// GRPCStatus lets status.FromError and status.Code understand the error.
func (e *Error) GRPCStatus() *status.Status {
	var c codes.Code
	switch e.Kind {
	case KindNotFound:
		c = codes.NotFound
	case KindValidation:
		c = codes.InvalidArgument
	case KindUnauthenticated:
		c = codes.Unauthenticated
	case KindForbidden:
		c = codes.PermissionDenied
	case KindConflict:
		c = codes.AlreadyExists
	default:
		c = codes.Internal
	}
	return status.New(c, e.PublicMessage())
}

func defaultMessage(k Kind) string {
	switch k {
	case KindNotFound:
		return "resource not found"
	case KindValidation:
		return "validation failed"
	case KindUnauthenticated:
		return "authentication required"
	case KindForbidden:
		return "access denied"
	case KindConflict:
		return "resource already exists"
	}
	return "internal error"
}

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Validation(details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Details: details}
}

// Unauthenticated wraps the real cause for logging; the message stays generic.
func Unauthenticated(cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Err: cause}
}

func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

func Conflict(msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
