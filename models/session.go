// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// User is the identity of the authenticated account as reported by the
// server.
type User struct {
	// ID is the server-side user identifier.
	ID int64 `json:"id"`

	// Username is the login name used to authenticate.
	Username string `json:"username"`

	// DisplayName is a human-readable name, may be empty.
	DisplayName string `json:"displayName,omitempty"`

	// Roles lists server-side roles, used by the presentation layer for
	// gating only.
	Roles []string `json:"roles,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// AuthResponse is returned by the login endpoint.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int64  `json:"expiresIn"`
	TokenType string `json:"tokenType"`
	User      User   `json:"user"`
}

// RefreshResponse is returned by the refresh endpoint. RefreshToken and User
// are optional: when absent the previous values stay in force.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         *User  `json:"user,omitempty"`
}

// Session is the process-wide authentication state owned by the session
// manager. It is persisted as JSON between runs.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// Validate checks the session invariants: an access token always comes with
// an expiry instant.
func (s Session) Validate() error {
	if s.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalidSession)
	}
	if s.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: access token without expiry", ErrInvalidSession)
	}
	return nil
}

// Expired reports whether the access token is no longer usable at now,
// treating tokens that expire within leeway as already expired.
func (s Session) Expired(now time.Time, leeway time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-leeway))
}
