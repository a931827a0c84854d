// Package apperr defines the error kinds returned by the workflow and
// reference-data services. Handlers map a Kind to an HTTP status; the
// wrapped cause is only ever logged.
package apperr

import (
	"errors"
	"fmt"

	"jewelpo/internal/validation"
)

type Kind int

const (
	Internal Kind = iota
	PermissionDenied
	PreconditionFailed
	Validation
	NotFound
	Conflict
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case PreconditionFailed:
		return "precondition_failed"
	case Validation:
		return "validation_error"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal_error"
	}
}

// Error is a classified failure with a message that is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
	Fields  []validation.ValidationError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Denied(msg string) *Error {
	if msg == "" {
		msg = "Permission denied."
	}
	return &Error{Kind: PermissionDenied, Message: msg}
}

func Precondition(format string, args ...any) *Error {
	return &Error{Kind: PreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

// FromValidation converts a non-empty ValidationErrors accumulator.
func FromValidation(ve *validation.ValidationErrors) *Error {
	return &Error{Kind: Validation, Message: ve.Error(), Fields: ve.Errors}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as Internal. The op string is for logs only.
func Wrap(err error, op string) *Error {
	return &Error{Kind: Internal, Message: "Internal error.", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
