// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrTransient          = errors.New("transient failure")
	ErrNotAuthenticated   = errors.New("not authenticated")

	ErrSyncTransport     = errors.New("sync transport failure")
	ErrSyncRejected      = errors.New("sync rejected by server")
	ErrSyncConflict      = errors.New("sync conflict")
	ErrLocalStore        = errors.New("local store failure")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidPayload    = errors.New("invalid payload")
)

// AuthErrorKind classifies an authentication failure.
type AuthErrorKind int

const (
	// AuthInvalidCredentials means the server refused the login.
	AuthInvalidCredentials AuthErrorKind = iota + 1
	// AuthSessionExpired means the session is gone and a new login is needed.
	AuthSessionExpired
	// AuthTransient means the call may succeed later (offline, 5xx).
	AuthTransient
)

func (k AuthErrorKind) sentinel() error {
	switch k {
	case AuthInvalidCredentials:
		return ErrInvalidCredentials
	case AuthSessionExpired:
		return ErrSessionExpired
	default:
		return ErrTransient
	}
}

// AuthError is returned by the session manager. errors.Is matches it against
// the sentinel of its kind, and against ErrNotAuthenticated when no session
// existed at all.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	// Code is the HTTP status, 0 when the server was not reached.
	Code int
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// SyncErrorKind classifies a failed sync call.
type SyncErrorKind int

const (
	// SyncTransport means the request never got an answer.
	SyncTransport SyncErrorKind = iota + 1
	// SyncServerRejected means the server answered with a non-2xx status.
	SyncServerRejected
	// SyncConflict means the server refused the batch with 409.
	SyncConflict
	// SyncLocalStore means the response could not be applied locally.
	SyncLocalStore
)

func (k SyncErrorKind) sentinel() error {
	switch k {
	case SyncTransport:
		return ErrSyncTransport
	case SyncConflict:
		return ErrSyncConflict
	case SyncLocalStore:
		return ErrLocalStore
	default:
		return ErrSyncRejected
	}
}

// SyncError is returned by the orchestrator for a failed collection cycle.
type SyncError struct {
	Kind       SyncErrorKind
	Collection string
	Code       int
	Message    string
	Err        error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("sync %s: %s", e.Collection, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("sync %s: http %d: %s", e.Collection, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func (e *SyncError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
