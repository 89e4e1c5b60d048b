// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-field-sync/internal/logger"
)

type cursorRepository struct {
	*DB
	logger *logger.Logger
}

// NewSyncCursorRepository constructs a [SyncCursorRepository] backed by db.
func NewSyncCursorRepository(db *DB, logger *logger.Logger) SyncCursorRepository {
	return &cursorRepository{
		DB:     db,
		logger: logger,
	}
}

func (c *cursorRepository) Cursor(ctx context.Context, collection string) (int64, error) {
	query, args, err := buildGetCursorQuery(collection).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var ts int64
	err = c.DB.QueryRowContext(ctx, query, args...).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "cursorRepository.Cursor").
			Str("collection", collection).
			Msg("failed to read sync cursor")
		return 0, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return ts, nil
}

func (c *cursorRepository) AdvanceCursor(ctx context.Context, collection string, timestamp int64) error {
	if collection == "" {
		return ErrEmptyCollection
	}

	if _, err := execBuilt(ctx, c.DB, buildAdvanceCursorQuery(collection, timestamp)); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "cursorRepository.AdvanceCursor").
			Str("collection", collection).
			Int64("timestamp", timestamp).
			Msg("failed to advance sync cursor")
		return fmt.Errorf("advance cursor %s: %w", collection, err)
	}
	return nil
}
