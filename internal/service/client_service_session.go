// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-field-sync/internal/adapter"
	"github.com/MKhiriev/go-field-sync/internal/app"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/utils"
	"github.com/MKhiriev/go-field-sync/models"
)

const (
	defaultTokenType      = "Bearer"
	defaultRefreshTimeout = 15 * time.Second
)

// SessionOptions tunes a session manager.
type SessionOptions struct {
	// Path is the session file location.
	Path string
	// RefreshLeeway makes tokens expiring within the window count as expired.
	RefreshLeeway time.Duration
	// RefreshTimeout bounds the shared refresh call, which outlives the
	// context of the caller that started it.
	RefreshTimeout time.Duration
}

type sessionManager struct {
	auth   adapter.AuthAdapter
	fs     afero.Fs
	opts   SessionOptions
	now    func() time.Time
	logger *logger.Logger

	loadOnce sync.Once
	mu       sync.RWMutex
	session  *models.Session

	refreshGroup  singleflight.Group
	status        *utils.Subject[bool]
	refreshStatus *utils.Subject[models.Result[models.Session]]
}

// NewSessionManager creates a session manager that persists the session as
// JSON in fs at opts.Path. The file is read lazily on first use.
func NewSessionManager(auth adapter.AuthAdapter, fs afero.Fs, opts SessionOptions, logger *logger.Logger) SessionManager {
	return newSessionManager(auth, fs, opts, time.Now, logger)
}

func newSessionManager(auth adapter.AuthAdapter, fs afero.Fs, opts SessionOptions, now func() time.Time, logger *logger.Logger) *sessionManager {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}

	return &sessionManager{
		auth:          auth,
		fs:            fs,
		opts:          opts,
		now:           now,
		logger:        logger,
		status:        utils.NewSubject(false, utils.Distinct[bool]()),
		refreshStatus: utils.NewSubject[models.Result[models.Session]](nil),
	}
}

func (m *sessionManager) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	log := logger.FromContextOr(ctx, m.logger).With().Str("func", "sessionManager.Login").Str("username", creds.Username).Logger()
	m.restore(ctx)

	if creds.Username == "" || creds.Password == "" {
		return models.Session{}, &AuthError{Kind: AuthInvalidCredentials, Message: app.MsgMissingCredentials, Err: ErrInvalidCredentials}
	}

	resp, failure, ok := models.Split(m.auth.Login(ctx, creds))
	if !ok {
		authErr := mapLoginFailure(failure)
		log.Warn().Int("code", failure.Code).Str("reason", failure.Message).Msg("login failed")
		return models.Session{}, authErr
	}
	if resp.Token == "" {
		log.Error().Msg("login response without token")
		return models.Session{}, &AuthError{Kind: AuthTransient, Message: app.MsgEmptyTokenInResponse}
	}

	session := models.Session{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    m.expiresAt(resp.Token, resp.ExpiresIn),
		User:         resp.User,
	}
	if session.TokenType == "" {
		session.TokenType = defaultTokenType
	}
	if session.User.ID == 0 {
		if id, err := utils.ParseUserIDFromJWT(resp.Token); err == nil {
			session.User.ID = id
		}
	}
	if session.User.Username == "" {
		session.User.Username = creds.Username
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persist(session); err != nil {
		log.Error().Err(err).Msg("session could not be persisted, keeping it in memory only")
	}
	m.session = &session
	m.status.Publish(true)

	log.Info().Int64("user_id", session.User.ID).Time("expires_at", session.ExpiresAt).Msg("logged in")
	return session, nil
}

func (m *sessionManager) ValidToken(ctx context.Context) (string, error) {
	m.restore(ctx)

	session, ok := m.current()
	if !ok {
		return "", notAuthenticated()
	}
	if !session.Expired(m.now(), m.opts.RefreshLeeway) {
		return session.AccessToken, nil
	}

	refreshed, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (m *sessionManager) ExpireAccessToken(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}
	expired := *m.session
	expired.ExpiresAt = m.now().Add(-time.Second)
	m.session = &expired

	logger.FromContextOr(ctx, m.logger).Info().Str("func", "sessionManager.ExpireAccessToken").Msg("access token rejected by server, next use refreshes it")
}

func (m *sessionManager) Refresh(ctx context.Context) (models.Session, error) {
	m.restore(ctx)

	session, ok := m.current()
	if !ok {
		return models.Session{}, notAuthenticated()
	}

	// the shared call must not die with whichever caller happened to start it
	detached := context.WithoutCancel(ctx)
	ch := m.refreshGroup.DoChan(session.RefreshToken, func() (any, error) {
		return m.refresh(detached, session)
	})

	select {
	case <-ctx.Done():
		return models.Session{}, &AuthError{Kind: AuthTransient, Message: "refresh abandoned", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return models.Session{}, res.Err
		}
		return res.Val.(models.Session), nil
	}
}

func (m *sessionManager) refresh(ctx context.Context, prev models.Session) (models.Session, error) {
	log := logger.FromContextOr(ctx, m.logger).With().Str("func", "sessionManager.refresh").Logger()

	// a caller that read the session before an earlier flight finished
	// must not replay a token that was already rotated or revoked
	current, ok := m.current()
	if !ok {
		return models.Session{}, notAuthenticated()
	}
	if current.RefreshToken != prev.RefreshToken || current.AccessToken != prev.AccessToken {
		return current, nil
	}

	if prev.RefreshToken == "" {
		log.Warn().Msg("session has no refresh token, logging out")
		m.logoutIf(ctx, prev)
		authErr := &AuthError{Kind: AuthSessionExpired, Message: app.MsgSessionExpired}
		m.refreshStatus.Publish(models.Fail[models.Session](authErr.Error(), 0))
		return models.Session{}, authErr
	}

	m.refreshStatus.Publish(models.Pending[models.Session]())

	ctx, cancel := context.WithTimeout(ctx, m.opts.RefreshTimeout)
	defer cancel()

	resp, failure, ok := models.Split(m.auth.Refresh(ctx, prev.RefreshToken))
	if !ok {
		authErr := mapRefreshFailure(failure)
		if authErr.Kind == AuthSessionExpired {
			log.Warn().Msg("refresh token rejected, logging out")
			m.logoutIf(ctx, prev)
		} else {
			log.Warn().Int("code", failure.Code).Str("reason", failure.Message).Msg("refresh failed, keeping session")
		}
		m.refreshStatus.Publish(models.Fail[models.Session](authErr.Error(), failure.Code))
		return models.Session{}, authErr
	}
	if resp.Token == "" {
		authErr := &AuthError{Kind: AuthTransient, Message: app.MsgEmptyTokenInResponse}
		m.refreshStatus.Publish(models.Fail[models.Session](authErr.Error(), 0))
		return models.Session{}, authErr
	}

	next := prev
	next.AccessToken = resp.Token
	next.ExpiresAt = m.expiresAt(resp.Token, resp.ExpiresIn)
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	if resp.User != nil {
		next.User = *resp.User
	}

	m.mu.Lock()
	if m.session == nil || m.session.RefreshToken != prev.RefreshToken {
		// logged out or replaced by a fresh login while the call was in flight
		current := m.session
		m.mu.Unlock()
		if current == nil {
			authErr := &AuthError{Kind: AuthSessionExpired, Message: app.MsgSessionExpired}
			m.refreshStatus.Publish(models.Fail[models.Session](authErr.Error(), 0))
			return models.Session{}, authErr
		}
		return *current, nil
	}
	if err := m.persist(next); err != nil {
		log.Error().Err(err).Msg("refreshed session could not be persisted, keeping it in memory only")
	}
	m.session = &next
	m.mu.Unlock()

	m.refreshStatus.Publish(models.Ok(next))
	log.Info().Time("expires_at", next.ExpiresAt).Msg("access token refreshed")
	return next, nil
}

func (m *sessionManager) Logout(ctx context.Context) {
	m.restore(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear(ctx)
}

// logoutIf logs out only if the session still carries prev's refresh token.
func (m *sessionManager) logoutIf(ctx context.Context, prev models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.RefreshToken != prev.RefreshToken {
		return
	}
	m.clear(ctx)
}

// clear must be called with m.mu held.
func (m *sessionManager) clear(ctx context.Context) {
	m.session = nil
	if err := m.fs.Remove(m.opts.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContextOr(ctx, m.logger).Error().Err(err).Str("func", "sessionManager.clear").Msg("failed to remove session file")
	}
	if m.status.Publish(false) {
		logger.FromContextOr(ctx, m.logger).Info().Str("func", "sessionManager.clear").Msg("logged out")
	}
}

func (m *sessionManager) Session(ctx context.Context) (models.Session, bool) {
	m.restore(ctx)
	return m.current()
}

func (m *sessionManager) Authenticated(ctx context.Context) bool {
	_, ok := m.Session(ctx)
	return ok
}

func (m *sessionManager) Subscribe(ctx context.Context) (<-chan bool, func()) {
	m.restore(ctx)
	return m.status.Subscribe()
}

func (m *sessionManager) RefreshStatus() (<-chan models.Result[models.Session], func()) {
	return m.refreshStatus.Subscribe()
}

func (m *sessionManager) current() (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return models.Session{}, false
	}
	return *m.session, true
}

// expiresAt prefers the server's expiresIn and falls back to the token's exp
// claim. A token with neither counts as already expired.
func (m *sessionManager) expiresAt(token string, expiresIn int64) time.Time {
	now := m.now()
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	if exp, err := utils.TokenExpiry(token); err == nil {
		return exp
	}
	return now
}

// restore loads the persisted session once. An unreadable or invalid file
// is removed and the user starts logged out.
func (m *sessionManager) restore(ctx context.Context) {
	m.loadOnce.Do(func() {
		log := logger.FromContextOr(ctx, m.logger).With().Str("func", "sessionManager.restore").Str("path", m.opts.Path).Logger()

		data, err := afero.ReadFile(m.fs, m.opts.Path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("session file unreadable, starting logged out")
			return
		}

		var session models.Session
		if err = json.Unmarshal(data, &session); err == nil {
			err = session.Validate()
		}
		if err != nil {
			log.Warn().Err(err).Msg("session file corrupt, removing it")
			if rmErr := m.fs.Remove(m.opts.Path); rmErr != nil {
				log.Error().Err(rmErr).Msg("failed to remove corrupt session file")
			}
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.session == nil {
			m.session = &session
			m.status.Publish(true)
		}
		log.Info().Int64("user_id", session.User.ID).Msg("session restored")
	})
}

// persist writes the session atomically: a temp file next to the target
// renamed over it, so a crash leaves either the old or the new session.
func (m *sessionManager) persist(session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if dir := filepath.Dir(m.opts.Path); dir != "." {
		if err = m.fs.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	tmp := m.opts.Path + ".tmp"
	if err = afero.WriteFile(m.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session temp file: %w", err)
	}
	if err = m.fs.Rename(tmp, m.opts.Path); err != nil {
		_ = m.fs.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
