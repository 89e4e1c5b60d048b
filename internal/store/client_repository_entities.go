// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/models"
)

// entityRepository is the SQLite-backed [LocalEntityRepository].
type entityRepository struct {
	*DB
	logger *logger.Logger
}

// NewLocalEntityRepository constructs a [LocalEntityRepository] backed by db.
func NewLocalEntityRepository(db *DB, logger *logger.Logger) LocalEntityRepository {
	return &entityRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *entityRepository) SaveLocal(ctx context.Context, entity models.RawEntity) error {
	if err := validateKey(entity.Collection, entity.LocalID); err != nil {
		return err
	}
	if entity.UpdatedAt.IsZero() {
		entity.UpdatedAt = r.clock()
	}

	if _, err := execBuilt(ctx, r.DB, buildSaveLocalQuery(entity)); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "entityRepository.SaveLocal").
			Str("collection", entity.Collection).
			Str("local_id", entity.LocalID).
			Msg("failed to save local entity")
		return fmt.Errorf("save local entity %s/%s: %w", entity.Collection, entity.LocalID, err)
	}
	return nil
}

func (r *entityRepository) UpsertRemote(ctx context.Context, entity models.RawEntity) error {
	if err := validateKey(entity.Collection, entity.LocalID); err != nil {
		return err
	}
	if entity.UpdatedAt.IsZero() {
		entity.UpdatedAt = r.clock()
	}

	if _, err := execBuilt(ctx, r.DB, buildUpsertRemoteQuery(entity)); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "entityRepository.UpsertRemote").
			Str("collection", entity.Collection).
			Str("local_id", entity.LocalID).
			Msg("failed to upsert server entity")
		return fmt.Errorf("upsert remote entity %s/%s: %w", entity.Collection, entity.LocalID, err)
	}
	return nil
}

func (r *entityRepository) GetEntity(ctx context.Context, collection, localID string) (models.RawEntity, error) {
	return r.getOne(ctx, buildGetEntityQuery(collection, localID))
}

func (r *entityRepository) FindByServerID(ctx context.Context, collection string, serverID int64) (models.RawEntity, error) {
	return r.getOne(ctx, buildFindByServerIDQuery(collection, serverID))
}

func (r *entityRepository) getOne(ctx context.Context, b sq.SelectBuilder) (models.RawEntity, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return models.RawEntity{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	entity, err := scanEntity(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.RawEntity{}, ErrEntityNotFound
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "entityRepository.getOne").
			Msg("failed to read entity")
		return models.RawEntity{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return entity, nil
}

func (r *entityRepository) ListEntities(ctx context.Context, collection string) ([]models.RawEntity, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListEntitiesQuery(collection).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.ListEntities").
			Str("collection", collection).
			Msg("failed to query entities")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entities []models.RawEntity
	for rows.Next() {
		entity, scanErr := scanEntity(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.ListEntities").
				Str("collection", collection).
				Msg("failed to scan entity row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		entities = append(entities, entity)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return entities, nil
}

func (r *entityRepository) DeleteEntity(ctx context.Context, collection, localID string) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilt(ctx, tx, buildDeletePendingQuery(collection, localID)); err != nil {
			return err
		}
		_, err := execBuilt(ctx, tx, buildDeleteEntityQuery(collection, localID))
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "entityRepository.DeleteEntity").
			Str("collection", collection).
			Str("local_id", localID).
			Msg("failed to delete entity")
		return fmt.Errorf("delete entity %s/%s: %w", collection, localID, err)
	}
	return nil
}

func (r *entityRepository) SetReview(ctx context.Context, collection, localID string, needsReview bool, reason string) error {
	res, err := execBuilt(ctx, r.DB, buildSetReviewQuery(collection, localID, needsReview, reason))
	if err != nil {
		return fmt.Errorf("set review flag %s/%s: %w", collection, localID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (models.RawEntity, error) {
	var (
		e               models.RawEntity
		serverID        sql.NullInt64
		payload         []byte
		status          string
		lastSyncAttempt sql.NullInt64
		updatedAt       int64
	)

	err := row.Scan(
		&e.Collection,
		&e.LocalID,
		&serverID,
		&payload,
		&status,
		&lastSyncAttempt,
		&e.NeedsReview,
		&e.ReviewReason,
		&e.Deleted,
		&updatedAt,
	)
	if err != nil {
		return models.RawEntity{}, err
	}

	e.ServerID = fromNullInt(serverID)
	e.Payload = payload
	e.Status = models.SyncStatus(status)
	e.LastSyncAttempt = fromNullMillis(lastSyncAttempt)
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return e, nil
}

func validateKey(collection, localID string) error {
	if collection == "" {
		return ErrEmptyCollection
	}
	if localID == "" {
		return ErrEmptyLocalID
	}
	return nil
}
