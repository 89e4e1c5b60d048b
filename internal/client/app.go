// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-field-sync/internal/config"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/service"
	"github.com/MKhiriev/go-field-sync/internal/workers"
	"github.com/MKhiriev/go-field-sync/models"
)

type App struct {
	services *service.ClientServices
	workers  *workers.Workers
	auth     config.ClientAuth
	logger   *logger.Logger
}

// NewApp assembles the background workers around services: the probe, the
// orchestrator runner, the state logger, the timer and the two edge
// triggers. Workers start in that order and stop in reverse.
func NewApp(services *service.ClientServices, probe ConnectivityProbe, cfg *config.ClientConfig, logger *logger.Logger) (Client, error) {
	if services == nil || probe == nil || cfg == nil {
		return nil, errors.New("client app: missing dependency")
	}

	sessions := services.Sessions
	authStream := func() (<-chan bool, func()) {
		return sessions.Subscribe(context.Background())
	}

	ws := workers.NewWorkers(
		probe,
		services.Sync,
		workers.NewSyncStateLogger(services.Sync, logger),
		workers.NewPeriodicSyncWorker(services.Sync, cfg.Workers.SyncInterval, logger),
		workers.NewEdgeTriggerWorker("connectivity", probe.Subscribe, services.Sync, models.TriggerConnectivity, logger),
		workers.NewEdgeTriggerWorker("auth", authStream, services.Sync, models.TriggerUser, logger),
	)

	return &App{
		services: services,
		workers:  ws,
		auth:     cfg.Auth,
		logger:   logger,
	}, nil
}

// Run blocks until the process receives a stop signal.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	ctx = a.logger.WithContext(ctx)

	a.logger.Info().Msg("starting sync client")
	a.workers.Start(ctx)
	defer func() {
		a.workers.Stop()
		a.logger.Info().Msg("sync client stopped")
	}()

	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// bootstrap requests the first cycle for a restored session, or logs in
// with the configured credentials. A successful login raises the auth
// status, which triggers the cycle on its own.
func (a *App) bootstrap(ctx context.Context) error {
	sessions := a.services.Sessions

	if sessions.Authenticated(ctx) {
		a.services.Sync.RequestSync(models.TriggerUser)
		return nil
	}
	if !a.auth.HasCredentials() {
		a.logger.Warn().Msg("no session and no credentials configured, working offline")
		return nil
	}

	_, err := sessions.Login(ctx, models.Credentials{
		Username:   a.auth.Username,
		Password:   a.auth.Password,
		RememberMe: a.auth.RememberMe,
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		return fmt.Errorf("bootstrap login: %w", err)
	}

	a.logger.Warn().Err(err).Msg("bootstrap login failed, working offline")
	return nil
}
