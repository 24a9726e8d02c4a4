// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to map it to a status
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
	KindUpstream   Kind = "upstream"
	KindTooLarge   Kind = "too_large"
)

// Error is the error type returned across the context store boundary
type Error struct {
	Kind    Kind
	Message string
	Details string
	// Status is the upstream HTTP status for upstream errors, 0 otherwise
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed input
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that a referenced record does not exist
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure
func Storage(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

// Upstream wraps a failure of an external service. status is the
// upstream response status when one was received.
func Upstream(status int, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Status: status, Err: err}
}

// TooLarge reports a request body over the configured limit
func TooLarge(format string, args ...interface{}) *Error {
	return &Error{Kind: KindTooLarge, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches operator-facing details to the error
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// KindOf returns the kind of err, or "" if err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsStorage reports whether err is a storage error
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsUpstream reports whether err is an upstream error
func IsUpstream(err error) bool { return KindOf(err) == KindUpstream }

// HTTPStatus maps err to the status code a handler should reply with
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
