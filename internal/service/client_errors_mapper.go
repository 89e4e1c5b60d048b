// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"net/http"

	"github.com/MKhiriev/go-field-sync/internal/app"
	"github.com/MKhiriev/go-field-sync/models"
)

// mapLoginFailure translates a failed login call into an [AuthError].
func mapLoginFailure[T any](f models.Failure[T]) *AuthError {
	switch f.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Kind: AuthInvalidCredentials, Message: app.MsgInvalidCredentials, Code: f.Code, Err: f.Err()}
	case 0:
		return &AuthError{Kind: AuthTransient, Message: app.MsgServerUnreachable, Err: f.Err()}
	}
	return &AuthError{Kind: AuthTransient, Message: f.Message, Code: f.Code, Err: f.Err()}
}

// mapRefreshFailure translates a failed refresh call. Only 401 means the
// refresh token is dead; everything else leaves the session in place.
func mapRefreshFailure[T any](f models.Failure[T]) *AuthError {
	switch {
	case f.Unauthorized():
		return &AuthError{Kind: AuthSessionExpired, Message: app.MsgSessionExpired, Code: f.Code, Err: f.Err()}
	case f.Transport():
		return &AuthError{Kind: AuthTransient, Message: app.MsgServerUnreachable, Err: f.Err()}
	}
	return &AuthError{Kind: AuthTransient, Message: f.Message, Code: f.Code, Err: f.Err()}
}

// mapSyncFailure translates a failed sync call for collection.
func mapSyncFailure[T any](collection string, f models.Failure[T]) *SyncError {
	switch {
	case f.Transport():
		return &SyncError{Kind: SyncTransport, Collection: collection, Message: app.MsgServerUnreachable, Err: f.Err()}
	case f.Code == http.StatusConflict:
		return &SyncError{Kind: SyncConflict, Collection: collection, Code: f.Code, Message: app.MsgSyncConflict, Err: f.Err()}
	}
	return &SyncError{Kind: SyncServerRejected, Collection: collection, Code: f.Code, Message: app.MsgSyncRejected, Err: f.Err()}
}

func notAuthenticated() *AuthError {
	return &AuthError{Kind: AuthSessionExpired, Message: app.MsgNotAuthenticated, Err: ErrNotAuthenticated}
}

// transientChangeCode reports whether a per-change failure code is worth
// retrying later. 0 stands for a change the server could not process at all.
func transientChangeCode(code int) bool {
	switch code {
	case 0,
		http.StatusRequestTimeout,
		http.StatusConflict,
		http.StatusLocked,
		http.StatusTooEarly,
		http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}
