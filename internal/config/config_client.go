// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side application settings.
type ClientApp struct {
	HashKey string
	LogPath string
}

// ClientAuth holds the bootstrap credentials and token refresh tuning.
type ClientAuth struct {
	Username      string
	Password      string
	RememberMe    bool
	RefreshLeeway time.Duration
}

// HasCredentials reports whether bootstrap credentials were configured.
func (a ClientAuth) HasCredentials() bool {
	return a.Username != "" && a.Password != ""
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the HTTP endpoint address used by the client.
	HTTPAddress string
	// RequestTimeout is the timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings.
type ClientDB struct {
	// DSN is the SQLite connection string, or "memory" for the map store.
	// An SQLite in-memory DSN such as ":memory:" still uses SQLite.
	DSN string
}

// InMemory reports whether the volatile in-process store was requested.
func (db ClientDB) InMemory() bool {
	return db.DSN == "memory"
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB          ClientDB
	SessionPath string
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	SyncInterval         time.Duration
	ConnectivityInterval time.Duration
}

// ClientSync contains orchestrator tuning.
type ClientSync struct {
	Collections []string
	StateWindow time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxRetries  int
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	App     ClientApp
	Auth    ClientAuth
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
	Sync    ClientSync
}

// GetClientConfig builds and validates the client configuration from the
// merged structured configuration.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := newClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

func newClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		App: ClientApp{
			HashKey: cfg.App.HashKey,
			LogPath: cfg.App.LogPath,
		},
		Auth: ClientAuth{
			Username:      cfg.Auth.Username,
			Password:      cfg.Auth.Password,
			RememberMe:    cfg.Auth.RememberMe,
			RefreshLeeway: cfg.Auth.RefreshLeeway,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB:          ClientDB{DSN: cfg.Storage.DB.DSN},
			SessionPath: cfg.Storage.Session.Path,
		},
		Workers: ClientWorkers{
			SyncInterval:         cfg.Workers.SyncInterval,
			ConnectivityInterval: cfg.Workers.ConnectivityInterval,
		},
		Sync: ClientSync{
			Collections: cfg.Sync.Collections,
			StateWindow: cfg.Sync.StateWindow,
			BackoffBase: cfg.Sync.BackoffBase,
			BackoffMax:  cfg.Sync.BackoffMax,
			MaxRetries:  cfg.Sync.MaxRetries,
		},
	}
}
