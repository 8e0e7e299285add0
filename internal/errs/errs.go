// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package errs defines the error taxonomy shared by every pipeline stage.
//
// Stages return plain errors tagged with a Kind; only the API boundary maps
// kinds to HTTP status codes. This keeps response formatting out of the
// modeling code while preserving errors.Is/errors.As chains.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary mapping.
type Kind int

const (
	// KindInternal is the default for untagged failures.
	KindInternal Kind = iota

	// KindValidation marks missing or malformed caller input.
	KindValidation

	// KindNotFound marks a missing podcast record or model artifact.
	KindNotFound

	// KindUpstream marks an outbound fetch that exhausted its retries.
	KindUpstream

	// KindStorage marks a persistence operation that exhausted its retries.
	KindStorage

	// KindInsufficientData marks a series too short for the requested
	// computation (clustering, regression, rolling window).
	KindInsufficientData

	// KindConflict marks a stale versioned write rejected by the store.
	KindConflict
)

// String returns the machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUpstream:
		return "UPSTREAM_ERROR"
	case KindStorage:
		return "STORAGE_ERROR"
	case KindInsufficientData:
		return "INSUFFICIENT_DATA"
	case KindConflict:
		return "VERSION_CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is an error tagged with a Kind. The wrapped cause, if any, remains
// reachable through errors.Is/errors.As.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error with a kind and context message.
// Returns nil if err is nil.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Validation creates a KindValidation error.
func Validation(format string, args ...interface{}) error {
	return New(KindValidation, format, args...)
}

// NotFound creates a KindNotFound error.
func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, format, args...)
}

// InsufficientData creates a KindInsufficientData error.
func InsufficientData(format string, args ...interface{}) error {
	return New(KindInsufficientData, format, args...)
}

// KindOf extracts the Kind from an error chain. Untagged errors report
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
