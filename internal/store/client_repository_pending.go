// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/models"
)

// pendingRepository is the SQLite-backed [PendingOperationStore]. Every
// operation runs in one transaction covering both the queue row and the
// entity's sync bookkeeping.
type pendingRepository struct {
	*DB
	logger *logger.Logger
}

// NewPendingOperationStore constructs a [PendingOperationStore] backed by db.
func NewPendingOperationStore(db *DB, logger *logger.Logger) PendingOperationStore {
	return &pendingRepository{
		DB:     db,
		logger: logger,
	}
}

type pendingRow struct {
	kind        models.OperationKind
	revision    int64
	status      models.SyncStatus
	lastAttempt sql.NullInt64
}

func getPending(ctx context.Context, tx *sql.Tx, collection, localID string) (pendingRow, bool, error) {
	query, args, err := buildGetPendingQuery(collection, localID).ToSql()
	if err != nil {
		return pendingRow{}, false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		row          pendingRow
		kind, status string
	)
	err = tx.QueryRowContext(ctx, query, args...).Scan(&kind, &row.revision, &status, &row.lastAttempt)
	if errors.Is(err, sql.ErrNoRows) {
		return pendingRow{}, false, nil
	}
	if err != nil {
		return pendingRow{}, false, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	row.kind, err = models.ParseOperationKind(kind)
	if err != nil {
		return pendingRow{}, false, err
	}
	row.status = models.SyncStatus(status)
	return row, true, nil
}

func (p *pendingRepository) Enqueue(ctx context.Context, collection, localID string, kind models.OperationKind) error {
	if err := validateKey(collection, localID); err != nil {
		return err
	}
	if _, err := models.ParseOperationKind(string(kind)); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	now := p.clock()

	err := p.inTx(ctx, func(tx *sql.Tx) error {
		queued, found, err := getPending(ctx, tx, collection, localID)
		if err != nil {
			return err
		}

		if !found {
			if _, err = execBuilt(ctx, tx, buildInsertPendingQuery(collection, localID, kind, now)); err != nil {
				return err
			}
			_, err = execBuilt(ctx, tx, buildResetEntityForEnqueueQuery(collection, localID))
			return err
		}

		merged, drop := queued.kind.Coalesce(kind)
		if drop {
			log.Debug().
				Str("func", "pendingRepository.Enqueue").
				Str("collection", collection).
				Str("local_id", localID).
				Msg("create and delete cancel out, dropping unsynced entity")
			if _, err = execBuilt(ctx, tx, buildDeletePendingQuery(collection, localID)); err != nil {
				return err
			}
			_, err = execBuilt(ctx, tx, buildDeleteUnsyncedEntityQuery(collection, localID))
			return err
		}

		if _, err = execBuilt(ctx, tx, buildCoalescePendingQuery(collection, localID, merged)); err != nil {
			return err
		}
		_, err = execBuilt(ctx, tx, buildResetEntityForEnqueueQuery(collection, localID))
		return err
	})
	if err != nil {
		log.Err(err).
			Str("func", "pendingRepository.Enqueue").
			Str("collection", collection).
			Str("local_id", localID).
			Str("operation", string(kind)).
			Msg("failed to enqueue pending operation")
		return fmt.Errorf("enqueue %s %s/%s: %w", kind, collection, localID, err)
	}
	return nil
}

func (p *pendingRepository) ListPending(ctx context.Context, collection string) ([]models.PendingOperation, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListPendingQuery(collection).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "pendingRepository.ListPending").
			Str("collection", collection).
			Msg("failed to query pending operations")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var ops []models.PendingOperation
	for rows.Next() {
		var (
			op                       models.PendingOperation
			kind, status             string
			enqueuedAt               int64
			lastAttempt, nextAttempt sql.NullInt64
			serverID                 sql.NullInt64
			payload                  []byte
		)

		if err = rows.Scan(
			&op.LocalID,
			&kind,
			&op.Revision,
			&op.Attempts,
			&status,
			&enqueuedAt,
			&lastAttempt,
			&nextAttempt,
			&op.LastError,
			&serverID,
			&payload,
		); err != nil {
			log.Err(err).
				Str("func", "pendingRepository.ListPending").
				Str("collection", collection).
				Msg("failed to scan pending operation row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		if op.Kind, err = models.ParseOperationKind(kind); err != nil {
			return nil, err
		}
		op.Collection = collection
		op.Status = models.SyncStatus(status)
		op.EnqueuedAt = time.UnixMilli(enqueuedAt)
		op.LastSyncAttempt = fromNullMillis(lastAttempt)
		op.NextAttemptAt = fromNullMillis(nextAttempt)
		op.ServerID = fromNullInt(serverID)
		op.Payload = payload

		ops = append(ops, op)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	return ops, nil
}

func (p *pendingRepository) MarkSynced(ctx context.Context, collection, localID string, serverID *int64, revision int64) error {
	log := logger.FromContext(ctx)

	err := p.inTx(ctx, func(tx *sql.Tx) error {
		queued, found, err := getPending(ctx, tx, collection, localID)
		if err != nil {
			return err
		}

		switch {
		case found && revision != 0 && queued.revision != revision:
			// Edited while the batch was in flight: the newer revision
			// stays queued, but it must reference the assigned id.
			log.Debug().
				Str("func", "pendingRepository.MarkSynced").
				Str("collection", collection).
				Str("local_id", localID).
				Int64("acknowledged_revision", revision).
				Int64("queued_revision", queued.revision).
				Msg("newer local edit queued, keeping pending operation")
			_, err = execBuilt(ctx, tx, buildRecordServerIDQuery(collection, localID, serverID))
			return err

		case found:
			if _, err = execBuilt(ctx, tx, buildDeletePendingQuery(collection, localID)); err != nil {
				return err
			}
			if queued.kind == models.OperationDelete {
				_, err = execBuilt(ctx, tx, buildDeleteEntityQuery(collection, localID))
				return err
			}
		}

		_, err = execBuilt(ctx, tx, buildMarkEntitySyncedQuery(collection, localID, serverID))
		return err
	})
	if err != nil {
		log.Err(err).
			Str("func", "pendingRepository.MarkSynced").
			Str("collection", collection).
			Str("local_id", localID).
			Msg("failed to mark operation synced")
		return fmt.Errorf("mark synced %s/%s: %w", collection, localID, err)
	}
	return nil
}

func (p *pendingRepository) MarkFailed(ctx context.Context, collection, localID string, revision int64, attemptedAt, retryAt time.Time, reason string) error {
	log := logger.FromContext(ctx)

	err := p.inTx(ctx, func(tx *sql.Tx) error {
		queued, found, err := getPending(ctx, tx, collection, localID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if revision != 0 && queued.revision != revision {
			log.Debug().
				Str("func", "pendingRepository.MarkFailed").
				Str("collection", collection).
				Str("local_id", localID).
				Int64("failed_revision", revision).
				Int64("queued_revision", queued.revision).
				Msg("newer local edit queued, skipping backoff")
			return nil
		}
		if queued.status == models.StatusError && queued.lastAttempt.Valid && queued.lastAttempt.Int64 == toMillis(attemptedAt) {
			// Same response applied again.
			return nil
		}

		if _, err = execBuilt(ctx, tx, buildMarkPendingFailedQuery(collection, localID, attemptedAt, retryAt, reason)); err != nil {
			return err
		}
		_, err = execBuilt(ctx, tx, buildMarkEntityFailedQuery(collection, localID, attemptedAt))
		return err
	})
	if err != nil {
		log.Err(err).
			Str("func", "pendingRepository.MarkFailed").
			Str("collection", collection).
			Str("local_id", localID).
			Msg("failed to mark operation failed")
		return fmt.Errorf("mark failed %s/%s: %w", collection, localID, err)
	}
	return nil
}

func (p *pendingRepository) Discard(ctx context.Context, collection, localID string, revision int64, reason string) error {
	var superseded bool
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		queued, found, err := getPending(ctx, tx, collection, localID)
		if err != nil {
			return err
		}
		if found && revision != 0 && queued.revision != revision {
			superseded = true
			_, err = execBuilt(ctx, tx, buildSetReviewQuery(collection, localID, true, reason))
			return err
		}

		if _, err = execBuilt(ctx, tx, buildDeletePendingQuery(collection, localID)); err != nil {
			return err
		}
		_, err = execBuilt(ctx, tx, buildDiscardEntityQuery(collection, localID, reason))
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "pendingRepository.Discard").
			Str("collection", collection).
			Str("local_id", localID).
			Msg("failed to discard pending operation")
		return fmt.Errorf("discard %s/%s: %w", collection, localID, err)
	}
	if superseded {
		return ErrOperationSuperseded
	}
	return nil
}
