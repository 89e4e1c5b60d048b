// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-field-sync/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_service_mock.go -package=mock

// TokenSource hands out bearer tokens to callers of authenticated endpoints.
type TokenSource interface {
	// ValidToken returns an access token that is not expired (taking the
	// refresh leeway into account), refreshing it first when needed. The
	// returned error is an [*AuthError].
	ValidToken(ctx context.Context) (string, error)

	// ExpireAccessToken marks the current access token as unusable so the
	// next ValidToken call refreshes it. It is called when the server
	// answered 401 to a request that carried the token.
	ExpireAccessToken(ctx context.Context)
}

// SessionManager owns the process-wide session: login, logout, token
// refresh and persistence across restarts. It is safe for concurrent use.
type SessionManager interface {
	TokenSource

	// Login exchanges credentials for a session. On success the session is
	// persisted and the auth status becomes true. Server rejections (400,
	// 401, 403) are reported as AuthInvalidCredentials, anything else as
	// AuthTransient.
	Login(ctx context.Context, creds models.Credentials) (models.Session, error)

	// Refresh exchanges the refresh token for a new access token. Concurrent
	// callers share one network call. A 401 logs the user out and returns
	// AuthSessionExpired; any other failure returns AuthTransient and keeps
	// the session.
	Refresh(ctx context.Context) (models.Session, error)

	// Logout clears the persisted and in-memory session unconditionally. It
	// is idempotent.
	Logout(ctx context.Context)

	// Session returns a copy of the current session, if any.
	Session(ctx context.Context) (models.Session, bool)

	// Authenticated reports whether a session is present.
	Authenticated(ctx context.Context) bool

	// Subscribe streams the auth status (distinct booleans), starting with
	// the current value.
	Subscribe(ctx context.Context) (<-chan bool, func())

	// RefreshStatus streams refresh outcomes: Loading while a refresh is in
	// flight, then Success or Failure. The first value is nil until a
	// refresh has run.
	RefreshStatus() (<-chan models.Result[models.Session], func())
}

// SyncRequester accepts asynchronous sync requests.
type SyncRequester interface {
	// RequestSync schedules a cycle without blocking. Requests that arrive
	// while a cycle runs coalesce into exactly one follow-up cycle.
	RequestSync(trigger models.SyncTrigger)
}

// SyncOrchestrator drives the sync cycle for every configured collection
// and publishes its state machine.
type SyncOrchestrator interface {
	SyncRequester

	// SyncNow runs one full cycle over all collections synchronously and
	// returns the first failure. The state machine is published as for a
	// requested cycle.
	SyncNow(ctx context.Context) error

	// SyncCollection runs the cycle for one collection without publishing
	// state. Cycles of the same collection never overlap.
	SyncCollection(ctx context.Context, collection string) error

	// State returns the current sync state.
	State() models.SyncState

	// Subscribe streams state transitions, starting with the current state.
	Subscribe() (<-chan models.SyncState, func())

	// Start launches the background runner that serves RequestSync.
	Start(ctx context.Context)

	// Stop stops the runner and waits for an in-flight cycle to end.
	Stop()
}

// EntityService is the local-first CRUD surface over synchronised
// collections. Every mutation is written locally, queued for sync and
// followed by a sync request; none of them needs the network.
type EntityService interface {
	Create(ctx context.Context, collection string, payload json.RawMessage) (models.RawEntity, error)
	Update(ctx context.Context, collection, localID string, payload json.RawMessage) (models.RawEntity, error)
	Delete(ctx context.Context, collection, localID string) error
	Get(ctx context.Context, collection, localID string) (models.RawEntity, error)
	List(ctx context.Context, collection string) ([]models.RawEntity, error)

	// NeedsReview lists entities flagged by conflict resolution or by a
	// permanently rejected change.
	NeedsReview(ctx context.Context, collection string) ([]models.RawEntity, error)

	// ClearReview removes the review flag once the user looked at it.
	ClearReview(ctx context.Context, collection, localID string) error
}

// IDGenerator produces local identifiers for new entities.
type IDGenerator interface {
	Generate() string
}
