package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an item (row, file, record) was skipped.
type ErrorKind string

const (
	KindMalformedRow       ErrorKind = "malformed_row"
	KindInvalidTime        ErrorKind = "invalid_time"
	KindInvalidMagnitude   ErrorKind = "invalid_magnitude"
	KindDecodeFailure      ErrorKind = "decode_failure"
	KindTransportFailure   ErrorKind = "transport_failure"
	KindPatternNotFound    ErrorKind = "pattern_not_found"
	KindUnknownSourceShape ErrorKind = "unknown_source_shape"
	KindIncomplete         ErrorKind = "incomplete"
	KindAlreadyExists      ErrorKind = "already_exists"
)

// Error is the tagged error returned by every parsing, extraction, and
// transformation step. Callers log it and skip the offending item.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, KindError(k))
// works regardless of detail text.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindError returns a bare sentinel for use with errors.Is.
func KindError(kind ErrorKind) error {
	return &Error{Kind: kind}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NewError builds a tagged error for adapters outside this package.
func NewError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
