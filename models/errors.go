// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "errors"

var (
	// ErrInvalidSession is returned by [Session.Validate] when the session
	// breaks its invariants (token without expiry, missing refresh token).
	ErrInvalidSession = errors.New("invalid session")

	// ErrUnknownOperationKind is returned when an operation kind cannot be
	// parsed.
	ErrUnknownOperationKind = errors.New("unknown operation kind")
)
