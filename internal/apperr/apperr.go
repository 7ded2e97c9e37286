// Package apperr defines the error kinds surfaced to gmail-cli users.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the layer that produced it.
type Kind string

const (
	KindConfig     Kind = "config"
	KindAuth       Kind = "auth"
	KindAPI        Kind = "api"
	KindValidation Kind = "validation"
	KindIO         Kind = "io"
)

// Reason refines KindAPI errors by the remote status.
type Reason string

const (
	ReasonForbidden Reason = "forbidden"
	ReasonQuota     Reason = "quota"
	ReasonNotFound  Reason = "not_found"
	ReasonOther     Reason = "other"
)

// Error is a user-facing failure with an optional cause.
type Error struct {
	Kind    Kind
	Reason  Reason
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

// Config reports an unreadable or incomplete configuration.
func Config(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// Auth reports that no usable credential could be obtained.
func Auth(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Validation reports bad user input detected before any remote call.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// API reports a failed remote call.
func API(reason Reason, message string, err error) *Error {
	return &Error{Kind: KindAPI, Reason: reason, Message: message, Err: err}
}

// Wrap attaches kind and message to err. A nil err yields nil.
func Wrap(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the API reason of the first *Error in err's chain, or "".
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
