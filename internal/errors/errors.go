// Package errors classifies failures that are not assertion mismatches:
// bad input, recognition-engine errors, timeouts and resource lifecycle errors.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies the category of an AppError.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindEngine
	KindTimeout
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindEngine:
		return "ENGINE"
	case KindTimeout:
		return "TIMEOUT"
	case KindResource:
		return "RESOURCE"
	default:
		return "UNKNOWN"
	}
}

// AppError is the base error type with a kind and metadata.
type AppError struct {
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given kind and message.
func New(kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(kind Kind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg, Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromEngine wraps an error returned by a recognition engine call. Deadline
// errors, whether from the context or from a gRPC status, become KindTimeout.
func FromEngine(err error, call string) error {
	if err == nil {
		return nil
	}
	kind := KindEngine
	if stderrors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
		kind = KindTimeout
	}
	return Wrap(err, kind, call+" failed").WithMetadata("call", call)
}

// IsKind reports whether any AppError in err's tree has the given kind,
// including AppErrors nested inside other AppErrors.
func IsKind(err error, kind Kind) bool {
	if appErr, ok := err.(*AppError); ok {
		if appErr == nil {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return IsKind(u.Unwrap(), kind)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if IsKind(e, kind) {
				return true
			}
		}
	}
	return false
}
