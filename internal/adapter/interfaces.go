// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport layer between the sync engine and
// the platform server.
//
// Every remote operation resolves to a [models.Result]: a response body on
// success, or a [models.Failure] carrying the HTTP status (0 when the request
// never reached the server). Callers never see raw transport errors.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-field-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// AuthAdapter performs the unauthenticated credential exchanges.
type AuthAdapter interface {
	// Login exchanges user credentials for a token pair.
	Login(ctx context.Context, creds models.Credentials) models.Result[models.AuthResponse]

	// Refresh exchanges a refresh token for a new access token. A 401
	// failure means the refresh token itself is no longer valid.
	Refresh(ctx context.Context, refreshToken string) models.Result[models.RefreshResponse]
}

// SyncAdapter submits one collection's client changes and receives the
// server's reconciliation.
type SyncAdapter interface {
	Sync(ctx context.Context, token, collection string, req models.SyncRequest) models.Result[models.SyncResponse]
}

// HealthChecker probes server reachability.
type HealthChecker interface {
	Ping(ctx context.Context) models.Result[struct{}]
}

// ServerAdapter is the full server contract.
type ServerAdapter interface {
	AuthAdapter
	SyncAdapter
	HealthChecker
}
