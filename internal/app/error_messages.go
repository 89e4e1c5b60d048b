// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// sync client services and workers.
//
// All Msg* constants are human-readable message strings that are written into
// errors, sync-state messages or log entries to describe the outcome of an
// operation. Keeping them in one place ensures consistent wording for the
// presentation layer.
package app

const (
	// MsgInvalidCredentials is reported when the server rejects the supplied
	// username/password combination.
	MsgInvalidCredentials = "invalid username or password"

	// MsgMissingCredentials is reported when a login is attempted without a
	// username or password.
	MsgMissingCredentials = "username and password are required"

	// MsgNotAuthenticated is reported when an operation needs a session but
	// nobody is logged in.
	MsgNotAuthenticated = "not authenticated"

	// MsgSessionExpired is reported when the refresh token was rejected and
	// the user has to log in again.
	MsgSessionExpired = "session expired, please log in again"

	// MsgServerUnreachable is reported when a request never got a response
	// (offline, DNS failure, timeout).
	MsgServerUnreachable = "server is unreachable"

	// MsgEmptyTokenInResponse is reported when the server answered 2xx but
	// the body carries no access token.
	MsgEmptyTokenInResponse = "server returned an empty token"

	// MsgSyncRejected is the prefix of a sync failure the server answered
	// with a non-2xx status.
	MsgSyncRejected = "sync rejected by server"

	// MsgSyncConflict is reported when the server refused the whole batch
	// because of a conflicting concurrent sync.
	MsgSyncConflict = "sync conflict, will retry"

	// MsgLocalStoreFailed is reported when applying a sync response to the
	// local database failed; the cursor is not advanced.
	MsgLocalStoreFailed = "local storage error"

	// MsgConflictReview is the review reason prefix stored on an entity the
	// server overrode during conflict resolution.
	MsgConflictReview = "conflict resolved by server"

	// MsgChangeRejected is the review reason prefix stored on an entity whose
	// change the server rejected permanently.
	MsgChangeRejected = "change rejected by server"

	// MsgRetriesExhausted is appended to the review reason when a change kept
	// failing with a transient code until the retry budget ran out.
	MsgRetriesExhausted = "retries exhausted"
)
