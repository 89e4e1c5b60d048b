// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"github.com/spf13/afero"

	"github.com/MKhiriev/go-field-sync/internal/adapter"
	"github.com/MKhiriev/go-field-sync/internal/config"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/store"
	"github.com/MKhiriev/go-field-sync/internal/utils"
)

// ClientServices groups the engine's services around one session.
type ClientServices struct {
	Sessions SessionManager
	Sync     SyncOrchestrator
	Entities EntityService
}

// NewClientServices wires the session manager, the orchestrator and the
// entity service over the given storages and server adapter. The session
// file lives in fs.
func NewClientServices(cfg *config.ClientConfig, storages *store.ClientStorages, serverAdapter adapter.ServerAdapter, fs afero.Fs, logger *logger.Logger) *ClientServices {
	sessions := NewSessionManager(serverAdapter, fs, SessionOptions{
		Path:           cfg.Storage.SessionPath,
		RefreshLeeway:  cfg.Auth.RefreshLeeway,
		RefreshTimeout: cfg.Adapter.RequestTimeout,
	}, logger)

	ids := utils.NewUUIDGenerator()

	orchestrator := NewSyncOrchestrator(
		sessions,
		serverAdapter,
		storages.PendingOperations,
		storages.Entities,
		storages.Cursors,
		ids,
		SyncOptions{
			Collections: cfg.Sync.Collections,
			StateWindow: cfg.Sync.StateWindow,
			Backoff: BackoffPolicy{
				Base:       cfg.Sync.BackoffBase,
				Max:        cfg.Sync.BackoffMax,
				MaxRetries: cfg.Sync.MaxRetries,
			},
		},
		logger,
	)

	entities := NewEntityService(storages.Entities, storages.PendingOperations, ids, orchestrator, cfg.Sync.Collections, logger)

	return &ClientServices{
		Sessions: sessions,
		Sync:     orchestrator,
		Entities: entities,
	}
}
