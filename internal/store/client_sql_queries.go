// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-field-sync/models"
)

const (
	entitiesTable = "entities"
	pendingTable  = "pending_operations"
	cursorsTable  = "sync_cursors"
)

var entityColumns = []string{
	"collection",
	"local_id",
	"server_id",
	"payload",
	"sync_status",
	"last_sync_attempt",
	"needs_review",
	"review_reason",
	"deleted",
	"updated_at",
}

const (
	saveLocalConflict = `ON CONFLICT(collection, local_id) DO UPDATE SET
		server_id   = COALESCE(excluded.server_id, entities.server_id),
		payload     = excluded.payload,
		sync_status = excluded.sync_status,
		deleted     = excluded.deleted,
		updated_at  = excluded.updated_at`

	upsertRemoteStatus = `CASE WHEN EXISTS (
		SELECT 1 FROM pending_operations WHERE collection = ? AND local_id = ?
	) THEN 'pending' ELSE 'synced' END`

	upsertRemoteConflict = `ON CONFLICT(collection, local_id) DO UPDATE SET
		server_id   = COALESCE(excluded.server_id, entities.server_id),
		payload     = excluded.payload,
		sync_status = excluded.sync_status,
		deleted     = CASE WHEN excluded.sync_status = 'pending' THEN entities.deleted ELSE 0 END,
		updated_at  = excluded.updated_at`

	advanceCursorConflict = `ON CONFLICT(collection) DO UPDATE SET
		last_sync_timestamp = MAX(sync_cursors.last_sync_timestamp, excluded.last_sync_timestamp)`
)

func entityKey(collection, localID string) sq.Eq {
	return sq.Eq{"collection": collection, "local_id": localID}
}

func buildGetEntityQuery(collection, localID string) sq.SelectBuilder {
	return sq.Select(entityColumns...).
		From(entitiesTable).
		Where(entityKey(collection, localID))
}

func buildFindByServerIDQuery(collection string, serverID int64) sq.SelectBuilder {
	return sq.Select(entityColumns...).
		From(entitiesTable).
		Where(sq.Eq{"collection": collection, "server_id": serverID})
}

func buildListEntitiesQuery(collection string) sq.SelectBuilder {
	return sq.Select(entityColumns...).
		From(entitiesTable).
		Where(sq.Eq{"collection": collection, "deleted": false}).
		OrderBy("updated_at", "local_id")
}

func buildSaveLocalQuery(e models.RawEntity) sq.InsertBuilder {
	return sq.Insert(entitiesTable).
		Columns("collection", "local_id", "server_id", "payload", "sync_status", "deleted", "updated_at").
		Values(e.Collection, e.LocalID, e.ServerID, []byte(e.Payload), string(models.StatusPending), e.Deleted, toMillis(e.UpdatedAt)).
		Suffix(saveLocalConflict)
}

func buildUpsertRemoteQuery(e models.RawEntity) sq.InsertBuilder {
	return sq.Insert(entitiesTable).
		Columns("collection", "local_id", "server_id", "payload", "sync_status", "deleted", "updated_at").
		Values(
			e.Collection,
			e.LocalID,
			e.ServerID,
			[]byte(e.Payload),
			sq.Expr(upsertRemoteStatus, e.Collection, e.LocalID),
			false,
			toMillis(e.UpdatedAt),
		).
		Suffix(upsertRemoteConflict)
}

func buildDeleteEntityQuery(collection, localID string) sq.DeleteBuilder {
	return sq.Delete(entitiesTable).Where(entityKey(collection, localID))
}

// buildDeleteUnsyncedEntityQuery removes an entity only if it never reached
// the server.
func buildDeleteUnsyncedEntityQuery(collection, localID string) sq.DeleteBuilder {
	return sq.Delete(entitiesTable).
		Where(entityKey(collection, localID)).
		Where(sq.Eq{"server_id": nil})
}

func buildSetReviewQuery(collection, localID string, needsReview bool, reason string) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("needs_review", needsReview).
		Set("review_reason", reason).
		Where(entityKey(collection, localID))
}

func buildEntityStatusQuery(collection, localID string, status models.SyncStatus) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("sync_status", string(status)).
		Where(entityKey(collection, localID))
}

func buildMarkEntitySyncedQuery(collection, localID string, serverID *int64) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("sync_status", string(models.StatusSynced)).
		Set("server_id", sq.Expr("COALESCE(?, server_id)", serverID)).
		Where(entityKey(collection, localID))
}

func buildRecordServerIDQuery(collection, localID string, serverID *int64) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("server_id", sq.Expr("COALESCE(?, server_id)", serverID)).
		Where(entityKey(collection, localID))
}

func buildMarkEntityFailedQuery(collection, localID string, attemptedAt time.Time) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("sync_status", string(models.StatusError)).
		Set("last_sync_attempt", toMillis(attemptedAt)).
		Where(entityKey(collection, localID))
}

func buildResetEntityForEnqueueQuery(collection, localID string) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("sync_status", string(models.StatusPending)).
		Set("last_sync_attempt", nil).
		Where(entityKey(collection, localID))
}

func buildDiscardEntityQuery(collection, localID, reason string) sq.UpdateBuilder {
	return sq.Update(entitiesTable).
		Set("sync_status", string(models.StatusError)).
		Set("needs_review", true).
		Set("review_reason", reason).
		Set("deleted", false).
		Where(entityKey(collection, localID))
}

func buildGetPendingQuery(collection, localID string) sq.SelectBuilder {
	return sq.Select("operation", "revision", "status", "last_attempt").
		From(pendingTable).
		Where(entityKey(collection, localID))
}

func buildInsertPendingQuery(collection, localID string, kind models.OperationKind, enqueuedAt time.Time) sq.InsertBuilder {
	return sq.Insert(pendingTable).
		Columns("collection", "local_id", "operation", "enqueued_at", "revision", "attempts", "status").
		Values(collection, localID, string(kind), toMillis(enqueuedAt), 1, 0, string(models.StatusPending))
}

// buildCoalescePendingQuery folds a new enqueue into the queued row. The
// enqueue time is left untouched so the operation keeps its FIFO position.
func buildCoalescePendingQuery(collection, localID string, kind models.OperationKind) sq.UpdateBuilder {
	return sq.Update(pendingTable).
		Set("operation", string(kind)).
		Set("revision", sq.Expr("revision + 1")).
		Set("attempts", 0).
		Set("status", string(models.StatusPending)).
		Set("last_attempt", nil).
		Set("next_attempt_at", nil).
		Set("last_error", "").
		Where(entityKey(collection, localID))
}

func buildDeletePendingQuery(collection, localID string) sq.DeleteBuilder {
	return sq.Delete(pendingTable).Where(entityKey(collection, localID))
}

func buildMarkPendingFailedQuery(collection, localID string, attemptedAt, retryAt time.Time, reason string) sq.UpdateBuilder {
	return sq.Update(pendingTable).
		Set("status", string(models.StatusError)).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_attempt", toMillis(attemptedAt)).
		Set("next_attempt_at", toMillis(retryAt)).
		Set("last_error", reason).
		Where(entityKey(collection, localID))
}

func buildListPendingQuery(collection string) sq.SelectBuilder {
	return sq.Select(
		"p.local_id",
		"p.operation",
		"p.revision",
		"p.attempts",
		"p.status",
		"p.enqueued_at",
		"p.last_attempt",
		"p.next_attempt_at",
		"p.last_error",
		"e.server_id",
		"e.payload",
	).
		From(pendingTable + " p").
		LeftJoin(entitiesTable + " e ON e.collection = p.collection AND e.local_id = p.local_id").
		Where(sq.Eq{"p.collection": collection}).
		OrderBy("p.enqueued_at", "p.rowid")
}

func buildGetCursorQuery(collection string) sq.SelectBuilder {
	return sq.Select("last_sync_timestamp").
		From(cursorsTable).
		Where(sq.Eq{"collection": collection})
}

// buildAdvanceCursorQuery never moves the stored cursor backwards.
func buildAdvanceCursorQuery(collection string, timestamp int64) sq.InsertBuilder {
	return sq.Insert(cursorsTable).
		Columns("collection", "last_sync_timestamp").
		Values(collection, timestamp).
		Suffix(advanceCursorConflict)
}
