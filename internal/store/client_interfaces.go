// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-field-sync/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// PendingOperationStore is the durable queue of local mutations awaiting
// server acknowledgement. There is at most one operation per
// (collection, localID); repeated enqueues coalesce into it.
type PendingOperationStore interface {
	// Enqueue records a local mutation. A second call for the same entity
	// keeps the original FIFO position, bumps the revision and resets the
	// retry bookkeeping. A create followed by a delete removes both the
	// operation and the never-synced entity.
	Enqueue(ctx context.Context, collection, localID string, kind models.OperationKind) error

	// ListPending returns the queued operations of a collection in enqueue
	// order, each carrying the current entity snapshot.
	ListPending(ctx context.Context, collection string) ([]models.PendingOperation, error)

	// MarkSynced clears the operation if revision still matches the queued
	// one (0 clears unconditionally) and records the server-assigned id.
	MarkSynced(ctx context.Context, collection, localID string, serverID *int64, revision int64) error

	// MarkFailed keeps the operation, sets status Error and schedules the
	// next attempt at retryAt. Applying the same attemptedAt twice is a
	// no-op. If revision no longer matches the queued one (0 matches any),
	// the entity was edited after the attempt and the operation stays
	// Pending without backoff.
	MarkFailed(ctx context.Context, collection, localID string, revision int64, attemptedAt, retryAt time.Time, reason string) error

	// Discard drops the operation and flags the entity for user review. If
	// revision no longer matches the queued one (0 matches any), only the
	// review flag is set, the newer operation stays queued and
	// [ErrOperationSuperseded] is returned.
	Discard(ctx context.Context, collection, localID string, revision int64, reason string) error
}

// LocalEntityRepository stores entity snapshots together with their sync
// bookkeeping.
type LocalEntityRepository interface {
	// SaveLocal upserts a user edit. The stored server id is kept and the
	// status becomes Pending.
	SaveLocal(ctx context.Context, entity models.RawEntity) error

	// UpsertRemote overwrites the local copy with the server's version. The
	// status is Synced unless an operation for the entity is still queued.
	UpsertRemote(ctx context.Context, entity models.RawEntity) error

	GetEntity(ctx context.Context, collection, localID string) (models.RawEntity, error)
	FindByServerID(ctx context.Context, collection string, serverID int64) (models.RawEntity, error)

	// ListEntities returns the entities of a collection that are not
	// locally deleted.
	ListEntities(ctx context.Context, collection string) ([]models.RawEntity, error)

	// DeleteEntity removes the entity and any operation queued for it.
	DeleteEntity(ctx context.Context, collection, localID string) error

	// SetReview sets or clears the user-review flag.
	SetReview(ctx context.Context, collection, localID string, needsReview bool, reason string) error
}

// SyncCursorRepository persists the per-collection sync cursor.
type SyncCursorRepository interface {
	// Cursor returns the stored cursor, 0 when the collection never synced.
	Cursor(ctx context.Context, collection string) (int64, error)

	// AdvanceCursor stores timestamp unless the stored cursor is already
	// greater.
	AdvanceCursor(ctx context.Context, collection string, timestamp int64) error
}
