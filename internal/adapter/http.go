// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MKhiriev/go-field-sync/internal/config"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/utils"
	"github.com/MKhiriev/go-field-sync/models"
)

// Server endpoints.
const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"
	syncPath    = "/api/sync/{collection}"
	healthPath  = "/api/health"

	// RefreshTokenHeader carries the refresh token on the refresh call.
	RefreshTokenHeader = "X-Refresh-Token"
)

type httpServerAdapter struct {
	client *utils.HTTPClient
	signer *utils.BodySigner
	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// adapterCfg.HTTPAddress and bounds every request by
// adapterCfg.RequestTimeout. When appCfg.HashKey is set, sync request bodies
// are signed with HMAC-SHA256 in the [utils.HashHeader] header.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as a
// valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	logger.Debug().
		Str("func", "NewHTTPServerAdapter").
		Str("base_url", baseURL).
		Dur("timeout", adapterCfg.RequestTimeout).
		Msg("server adapter configured")

	return &httpServerAdapter{
		client: utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		signer: utils.NewBodySigner(appCfg.HashKey),
		logger: logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Login implements [AuthAdapter]. It POSTs the credentials to
// POST /api/auth/login.
func (h *httpServerAdapter) Login(ctx context.Context, creds models.Credentials) models.Result[models.AuthResponse] {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		Post(loginPath)

	result := toResult[models.AuthResponse]("login", resp, err)
	logFailure(ctx, "httpServerAdapter.Login", result)
	return result
}

// Refresh implements [AuthAdapter]. The refresh call has no body; the
// refresh token travels in the X-Refresh-Token header and no Authorization
// header is sent.
func (h *httpServerAdapter) Refresh(ctx context.Context, refreshToken string) models.Result[models.RefreshResponse] {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader(RefreshTokenHeader, refreshToken).
		Post(refreshPath)

	result := toResult[models.RefreshResponse]("refresh", resp, err)
	logFailure(ctx, "httpServerAdapter.Refresh", result)
	return result
}

// Sync implements [SyncAdapter]. It POSTs req to POST /api/sync/{collection}
// with the bearer token.
func (h *httpServerAdapter) Sync(ctx context.Context, token, collection string, req models.SyncRequest) models.Result[models.SyncResponse] {
	if req.ClientChanges == nil {
		req.ClientChanges = []models.EntityChange{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.Fail[models.SyncResponse](fmt.Sprintf("encode sync request: %v", err), 0)
	}

	r := h.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetPathParam("collection", collection).
		SetBody(body)
	if sig := h.signer.Sign(body); sig != "" {
		r.SetHeader(utils.HashHeader, sig)
	}

	resp, err := r.Post(syncPath)

	result := toResult[models.SyncResponse]("sync "+collection, resp, err)
	logFailure(ctx, "httpServerAdapter.Sync", result)
	return result
}

// Ping implements [HealthChecker]. Any 2xx answer from GET /api/health
// counts as reachable; the body is ignored.
func (h *httpServerAdapter) Ping(ctx context.Context) models.Result[struct{}] {
	resp, err := h.client.R().
		SetContext(ctx).
		Get(healthPath)
	if err != nil {
		return models.Fail[struct{}](fmt.Sprintf("health request: %v", err), 0)
	}
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return models.Fail[struct{}](fmt.Sprintf("health: %s", failureMessage(resp)), code)
	}
	return models.Ok(struct{}{})
}

func logFailure[T any](ctx context.Context, fn string, result models.Result[T]) {
	if f, ok := result.(models.Failure[T]); ok {
		logger.FromContext(ctx).Debug().
			Str("func", fn).
			Int("code", f.Code).
			Msg(f.Message)
	}
}
