// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr defines the error kinds the query engine reports to callers.
//
// Every failure that leaves the engine is an *Error carrying a machine
// readable Kind. Validation kinds are produced before any scan starts;
// store and lock kinds abort the in-flight request.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error category.
type Kind string

const (
	KindQueryTooLong    Kind = "QUERY_TOO_LONG"
	KindInvalidK        Kind = "INVALID_K"
	KindNoQuestions     Kind = "NO_QUESTIONNAIRE_REQUESTED"
	KindMalformedQuery  Kind = "MALFORMED_QUERY"
	KindInvalidRequest  Kind = "INVALID_REQUEST"
	KindNotFound        Kind = "NOT_FOUND"
	KindTrendOutOfRange Kind = "TREND_OUT_OF_RANGE"
	KindUpstream        Kind = "UPSTREAM_STORE_ERROR"
	KindLockUnavailable Kind = "LOCK_UNAVAILABLE"
	KindInternal        Kind = "INTERNAL_SERVER_ERROR"
)

// Error is an engine error with a kind, an optional human-readable message
// and an optional wrapped cause.
type Error struct {
	Kind  Kind
	Human string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Human != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Human, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Human != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Human)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so sentinel comparisons like
// errors.Is(err, apperr.LockUnavailable(nil)) work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind with a human-readable message.
func New(kind Kind, human string) *Error {
	return &Error{Kind: kind, Human: human}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

func QueryTooLong(limit int) *Error {
	return New(KindQueryTooLong, fmt.Sprintf("query longer than %d characters", limit))
}

func InvalidK(field string) *Error {
	return New(KindInvalidK, fmt.Sprintf("%s must be at least 1", field))
}

func NoQuestions() *Error {
	return New(KindNoQuestions, "no questions requested")
}

func MalformedQuery(cause error) *Error {
	return &Error{Kind: KindMalformedQuery, Human: "malformed query", Err: cause}
}

func NotFound(what string) *Error {
	return New(KindNotFound, what+" not found")
}

// Upstream wraps a database or network failure.
func Upstream(cause error) *Error {
	return Wrap(KindUpstream, cause)
}

// LockUnavailable reports a lock that could not be acquired in time.
func LockUnavailable(cause error) *Error {
	return &Error{Kind: KindLockUnavailable, Human: "computation already in progress, retry later", Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to the status code used on the wire.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindQueryTooLong, KindInvalidK, KindNoQuestions, KindMalformedQuery,
		KindInvalidRequest, KindTrendOutOfRange:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindLockUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// TrendOutOfRange reports a submission outside the histogram window.
func TrendOutOfRange(hours, window int) *Error {
	return New(KindTrendOutOfRange, fmt.Sprintf("submission %d hours after poll start is outside the %d hour window", hours, window))
}
