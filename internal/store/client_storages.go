// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"
	"io"

	"github.com/MKhiriev/go-field-sync/internal/config"
	"github.com/MKhiriev/go-field-sync/internal/logger"
)

// ClientStorages groups the repositories of the sync engine into a single
// value that can be passed around the service layer.
type ClientStorages struct {
	// PendingOperations is the durable queue of unacknowledged local
	// mutations.
	PendingOperations PendingOperationStore

	// Entities holds entity snapshots and their sync bookkeeping.
	Entities LocalEntityRepository

	// Cursors holds the per-collection sync cursor.
	Cursors SyncCursorRepository

	closer io.Closer
}

// NewClientStorages initialises the client storage layer. It performs the
// following steps:
//  1. For the "memory" DSN returns a [MemoryStore] serving all repositories.
//  2. Otherwise opens an SQLite connection to the file named by cfg.DSN,
//     creating it if it does not yet exist.
//  3. Runs pending schema migrations via [DB.Migrate].
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewClientStorages(ctx context.Context, cfg config.ClientDB, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Str("dsn", cfg.DSN).Msg("creating new storages...")

	if cfg.InMemory() {
		mem := NewMemoryStore()
		return &ClientStorages{
			PendingOperations: mem,
			Entities:          mem,
			Cursors:           mem,
		}, nil
	}

	db, err := NewConnectSQLite(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return newSQLiteStorages(db, logger), nil
}

func newSQLiteStorages(db *DB, logger *logger.Logger) *ClientStorages {
	return &ClientStorages{
		PendingOperations: NewPendingOperationStore(db, logger),
		Entities:          NewLocalEntityRepository(db, logger),
		Cursors:           NewSyncCursorRepository(db, logger),
		closer:            db,
	}
}

// Close releases the database connection, if any.
func (s *ClientStorages) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
