// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"net/http"
)

// Result is the normalised outcome of a remote call. It is a closed set of
// three variants: [Success], [Failure] and [Loading]. The unexported marker
// method takes T, so Result[int] and Result[string] are distinct types and
// other packages cannot add variants. [Match] forces callers to handle all
// of them.
//
// One-shot calls only ever resolve to Success or Failure; Loading is visible
// to long-lived observers (for example while a token refresh is in flight).
type Result[T any] interface {
	isResult(T)
}

// Success carries the payload of a completed call.
type Success[T any] struct {
	Value T
}

// Failure describes a call that did not produce a payload. Code is the HTTP
// status when the server answered, and 0 when the request never got a
// response (connection refused, timeout, DNS failure).
type Failure[T any] struct {
	Message string
	Code    int
}

// Loading marks an operation that is still in progress.
type Loading[T any] struct{}

func (Success[T]) isResult(T) {}
func (Failure[T]) isResult(T) {}
func (Loading[T]) isResult(T) {}

// Ok wraps v into a [Success].
func Ok[T any](v T) Result[T] {
	return Success[T]{Value: v}
}

// Fail builds a [Failure] with the given message and code.
func Fail[T any](message string, code int) Result[T] {
	return Failure[T]{Message: message, Code: code}
}

// Pending returns the [Loading] variant.
func Pending[T any]() Result[T] {
	return Loading[T]{}
}

// Unauthorized reports whether the failure is the 401 sentinel meaning the
// credential is no longer valid.
func (f Failure[T]) Unauthorized() bool {
	return f.Code == http.StatusUnauthorized
}

// Transport reports whether the request never reached the server.
func (f Failure[T]) Transport() bool {
	return f.Code == 0
}

// Err converts the failure into a [*CallError] so it can travel through
// regular error returns.
func (f Failure[T]) Err() error {
	return &CallError{Message: f.Message, Code: f.Code}
}

// Match dispatches r to exactly one of the handlers. A nil r is treated as a
// failure, so a broken adapter never looks like success.
func Match[T, R any](r Result[T], onSuccess func(T) R, onFailure func(Failure[T]) R, onLoading func() R) R {
	switch v := r.(type) {
	case Success[T]:
		return onSuccess(v.Value)
	case Failure[T]:
		return onFailure(v)
	case Loading[T]:
		return onLoading()
	default:
		return onFailure(Failure[T]{Message: "empty result"})
	}
}

// Split converts a one-shot result into its payload or its failure. ok is
// true only for Success. Loading counts as a transport failure because a
// one-shot call must not resolve to it.
func Split[T any](r Result[T]) (value T, failure Failure[T], ok bool) {
	ok = Match(r,
		func(v T) bool { value = v; return true },
		func(f Failure[T]) bool { failure = f; return false },
		func() bool { failure = Failure[T]{Message: msgStillLoading}; return false },
	)
	return value, failure, ok
}

const msgStillLoading = "operation is still in progress"

// CallError is the error form of a [Failure].
type CallError struct {
	Message string
	Code    int
}

func (e *CallError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}
