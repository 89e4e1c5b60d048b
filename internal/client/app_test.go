// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-field-sync/internal/config"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/mock"
	"github.com/MKhiriev/go-field-sync/internal/service"
	"github.com/MKhiriev/go-field-sync/internal/utils"
	"github.com/MKhiriev/go-field-sync/models"
)

type fakeProbe struct {
	online  *utils.Subject[bool]
	started bool
	stopped bool
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{online: utils.NewSubject(false, utils.Distinct[bool]())}
}

func (p *fakeProbe) Start(context.Context)            { p.started = true }
func (p *fakeProbe) Stop()                            { p.stopped = true }
func (p *fakeProbe) Subscribe() (<-chan bool, func()) { return p.online.Subscribe() }

type appFixture struct {
	sessions *mock.MockSessionManager
	sync     *mock.MockSyncOrchestrator
	probe    *fakeProbe
	cfg      *config.ClientConfig
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &appFixture{
		sessions: mock.NewMockSessionManager(ctrl),
		sync:     mock.NewMockSyncOrchestrator(ctrl),
		probe:    newFakeProbe(),
		cfg: &config.ClientConfig{
			Workers: config.ClientWorkers{SyncInterval: time.Hour},
		},
	}

	auth := utils.NewSubject(false, utils.Distinct[bool]())
	f.sessions.EXPECT().Subscribe(gomock.Any()).DoAndReturn(func(context.Context) (<-chan bool, func()) {
		return auth.Subscribe()
	}).AnyTimes()

	states := utils.NewSubject(models.SyncState{})
	f.sync.EXPECT().Subscribe().DoAndReturn(states.Subscribe).AnyTimes()
	f.sync.EXPECT().Start(gomock.Any())
	f.sync.EXPECT().Stop()
	return f
}

func (f *appFixture) app(t *testing.T) *App {
	t.Helper()

	services := &service.ClientServices{Sessions: f.sessions, Sync: f.sync}
	c, err := NewApp(services, f.probe, f.cfg, logger.Nop())
	require.NoError(t, err)
	return c.(*App)
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestApp_RestoredSessionRequestsSync(t *testing.T) {
	f := newAppFixture(t)
	f.sessions.EXPECT().Authenticated(gomock.Any()).Return(true)
	f.sync.EXPECT().RequestSync(models.TriggerUser)

	require.NoError(t, f.app(t).run(cancelled()))
	assert.True(t, f.probe.started)
	assert.True(t, f.probe.stopped)
}

func TestApp_BootstrapLogin(t *testing.T) {
	f := newAppFixture(t)
	f.cfg.Auth = config.ClientAuth{Username: "tech", Password: "secret"}

	f.sessions.EXPECT().Authenticated(gomock.Any()).Return(false)
	f.sessions.EXPECT().Login(gomock.Any(), models.Credentials{Username: "tech", Password: "secret"}).
		Return(models.Session{AccessToken: "a"}, nil)
	f.sync.EXPECT().RequestSync(gomock.Any()).AnyTimes()

	require.NoError(t, f.app(t).run(cancelled()))
}

func TestApp_BootstrapLoginInvalidCredentials(t *testing.T) {
	f := newAppFixture(t)
	f.cfg.Auth = config.ClientAuth{Username: "tech", Password: "wrong"}

	f.sessions.EXPECT().Authenticated(gomock.Any()).Return(false)
	f.sessions.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(models.Session{}, &service.AuthError{Kind: service.AuthInvalidCredentials, Message: "invalid credentials"})

	err := f.app(t).run(cancelled())
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.True(t, f.probe.stopped)
}

func TestApp_BootstrapLoginTransientWorksOffline(t *testing.T) {
	f := newAppFixture(t)
	f.cfg.Auth = config.ClientAuth{Username: "tech", Password: "secret"}

	f.sessions.EXPECT().Authenticated(gomock.Any()).Return(false)
	f.sessions.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(models.Session{}, &service.AuthError{Kind: service.AuthTransient, Message: "server is unreachable"})

	require.NoError(t, f.app(t).run(cancelled()))
}

func TestApp_NoCredentials(t *testing.T) {
	f := newAppFixture(t)
	f.sessions.EXPECT().Authenticated(gomock.Any()).Return(false)

	require.NoError(t, f.app(t).run(cancelled()))
}

func TestNewApp_MissingDependency(t *testing.T) {
	_, err := NewApp(nil, newFakeProbe(), &config.ClientConfig{}, logger.Nop())
	require.Error(t, err)
}
