// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-field-sync/internal/config"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/models"
)

const tasks = models.CollectionTasks

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stores struct {
	pending  PendingOperationStore
	entities LocalEntityRepository
	cursors  SyncCursorRepository
	clock    *testClock
}

type storeFactory func(t *testing.T) stores

func newMemoryStores(t *testing.T) stores {
	clock := newTestClock()
	mem := NewMemoryStore().WithClock(clock.Now)
	return stores{pending: mem, entities: mem, cursors: mem, clock: clock}
}

func newSQLiteStores(t *testing.T) stores {
	t.Helper()

	db, err := NewConnectSQLite(context.Background(), config.ClientDB{DSN: filepath.Join(t.TempDir(), "sync.db")}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	clock := newTestClock()
	db.now = clock.Now

	s := newSQLiteStorages(db, logger.Nop())
	return stores{pending: s.PendingOperations, entities: s.Entities, cursors: s.Cursors, clock: clock}
}

var backends = map[string]storeFactory{
	"memory": newMemoryStores,
	"sqlite": newSQLiteStores,
}

func forEachBackend(t *testing.T, test func(t *testing.T, s stores)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func saveTask(t *testing.T, s stores, localID, title string) {
	t.Helper()
	payload, err := json.Marshal(models.Task{Title: title, Status: "open"})
	require.NoError(t, err)
	require.NoError(t, s.entities.SaveLocal(context.Background(), models.RawEntity{
		Collection: tasks,
		LocalID:    localID,
		Payload:    payload,
	}))
}

func payloadTitle(t *testing.T, payload []byte) string {
	t.Helper()
	var task models.Task
	require.NoError(t, json.Unmarshal(payload, &task))
	return task.Title
}

func remoteTask(localID string, serverID int64, title string) models.RawEntity {
	payload, _ := json.Marshal(models.Task{Title: title, Status: "open"})
	return models.RawEntity{Collection: tasks, LocalID: localID, ServerID: &serverID, Payload: payload}
}

func localIDs(ops []models.PendingOperation) []string {
	ids := make([]string, 0, len(ops))
	for _, op := range ops {
		ids = append(ids, op.LocalID)
	}
	return ids
}

func TestStore_EnqueueFIFOAndCoalesce(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "first")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))
		s.clock.Advance(time.Second)

		saveTask(t, s, "b", "second")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "b", models.OperationCreate))
		s.clock.Advance(time.Second)

		saveTask(t, s, "a", "first edited")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, localIDs(ops))

		a := ops[0]
		assert.Equal(t, models.OperationCreate, a.Kind)
		assert.Equal(t, int64(2), a.Revision)
		assert.Equal(t, models.StatusPending, a.Status)
		assert.True(t, s.clock.Now().Add(-2*time.Second).Equal(a.EnqueuedAt))
		assert.Nil(t, a.ServerID)

		var task models.Task
		require.NoError(t, json.Unmarshal(a.Payload, &task))
		assert.Equal(t, "first edited", task.Title)

		other, err := s.pending.ListPending(ctx, models.CollectionAssets)
		require.NoError(t, err)
		assert.Empty(t, other)
	})
}

func TestStore_CreateThenDeleteDropsEntity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "draft")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationDelete))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		assert.Empty(t, ops)

		_, err = s.entities.GetEntity(ctx, tasks, "a")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestStore_EnqueueRejectsBadInput(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		assert.ErrorIs(t, s.pending.Enqueue(ctx, "", "a", models.OperationCreate), ErrEmptyCollection)
		assert.ErrorIs(t, s.pending.Enqueue(ctx, tasks, "", models.OperationCreate), ErrEmptyLocalID)
		assert.ErrorIs(t, s.pending.Enqueue(ctx, tasks, "a", "upsert"), models.ErrUnknownOperationKind)
	})
}

func TestStore_MarkSynced(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "new")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))

		serverID := int64(42)
		require.NoError(t, s.pending.MarkSynced(ctx, tasks, "a", &serverID, 1))
		// Applying the same acknowledgement again changes nothing.
		require.NoError(t, s.pending.MarkSynced(ctx, tasks, "a", &serverID, 1))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		assert.Empty(t, ops)

		e, err := s.entities.FindByServerID(ctx, tasks, 42)
		require.NoError(t, err)
		assert.Equal(t, "a", e.LocalID)
		assert.Equal(t, models.StatusSynced, e.Status)

		// A later update references the assigned id.
		saveTask(t, s, "a", "renamed")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))
		ops, err = s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		require.NotNil(t, ops[0].ServerID)
		assert.Equal(t, int64(42), *ops[0].ServerID)
	})
}

func TestStore_MarkSyncedKeepsNewerRevision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "v1")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))
		// Edited while revision 1 is in flight.
		saveTask(t, s, "a", "v2")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))

		serverID := int64(7)
		require.NoError(t, s.pending.MarkSynced(ctx, tasks, "a", &serverID, 1))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, int64(2), ops[0].Revision)
		require.NotNil(t, ops[0].ServerID)
		assert.Equal(t, int64(7), *ops[0].ServerID)

		e, err := s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, e.Status)
	})
}

func TestStore_MarkSyncedDeleteRemovesEntity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		require.NoError(t, s.entities.UpsertRemote(ctx, remoteTask("a", 10, "server")))
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationDelete))
		require.NoError(t, s.pending.MarkSynced(ctx, tasks, "a", nil, 1))

		_, err := s.entities.GetEntity(ctx, tasks, "a")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestStore_MarkFailedIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "v1")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))

		attemptedAt := s.clock.Now()
		retryAt := attemptedAt.Add(30 * time.Second)
		require.NoError(t, s.pending.MarkFailed(ctx, tasks, "a", 1, attemptedAt, retryAt, "busy"))
		require.NoError(t, s.pending.MarkFailed(ctx, tasks, "a", 1, attemptedAt, retryAt, "busy"))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		op := ops[0]
		assert.Equal(t, models.StatusError, op.Status)
		assert.Equal(t, 1, op.Attempts)
		assert.Equal(t, "busy", op.LastError)
		require.NotNil(t, op.NextAttemptAt)
		assert.True(t, retryAt.Equal(*op.NextAttemptAt))
		assert.False(t, op.Eligible(attemptedAt))
		assert.True(t, op.Eligible(retryAt))

		e, err := s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusError, e.Status)
		require.NotNil(t, e.LastSyncAttempt)

		// A fresh edit makes the operation immediately eligible again.
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))
		ops, err = s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		assert.Equal(t, 0, ops[0].Attempts)
		assert.Nil(t, ops[0].NextAttemptAt)
		assert.Equal(t, models.StatusPending, ops[0].Status)

		// Nothing queued: no-op.
		require.NoError(t, s.pending.MarkFailed(ctx, tasks, "missing", 1, attemptedAt, retryAt, "busy"))
	})
}

func TestStore_Discard(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "bad")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))
		require.NoError(t, s.pending.Discard(ctx, tasks, "a", 1, "title is required"))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		assert.Empty(t, ops)

		e, err := s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.True(t, e.NeedsReview)
		assert.Equal(t, "title is required", e.ReviewReason)
		assert.Equal(t, models.StatusError, e.Status)

		require.NoError(t, s.entities.SetReview(ctx, tasks, "a", false, ""))
		e, err = s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.False(t, e.NeedsReview)

		assert.ErrorIs(t, s.entities.SetReview(ctx, tasks, "missing", true, "x"), ErrEntityNotFound)
	})
}

func TestStore_MarkFailedKeepsNewerRevision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "v1")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))
		saveTask(t, s, "a", "v2")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))

		attemptedAt := s.clock.Now()
		require.NoError(t, s.pending.MarkFailed(ctx, tasks, "a", 1, attemptedAt, attemptedAt.Add(time.Minute), "busy"))

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		op := ops[0]
		assert.Equal(t, int64(2), op.Revision)
		assert.Equal(t, models.StatusPending, op.Status)
		assert.Equal(t, 0, op.Attempts)
		assert.Nil(t, op.NextAttemptAt)
		assert.Empty(t, op.LastError)
		assert.True(t, op.Eligible(attemptedAt))
		assert.Equal(t, "v2", payloadTitle(t, op.Payload))

		e, err := s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, e.Status)
	})
}

func TestStore_DiscardKeepsNewerRevision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "bad")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationCreate))
		saveTask(t, s, "a", "good")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))

		err := s.pending.Discard(ctx, tasks, "a", 1, "title is required")
		require.ErrorIs(t, err, ErrOperationSuperseded)

		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, int64(2), ops[0].Revision)
		assert.Equal(t, models.OperationCreate, ops[0].Kind)
		assert.Equal(t, models.StatusPending, ops[0].Status)
		assert.Equal(t, "good", payloadTitle(t, ops[0].Payload))

		e, err := s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.True(t, e.NeedsReview)
		assert.Equal(t, "title is required", e.ReviewReason)
		assert.Equal(t, models.StatusPending, e.Status)

		// The matching revision is dropped as usual.
		require.NoError(t, s.pending.Discard(ctx, tasks, "a", 2, "still bad"))
		ops, err = s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})
}

func TestStore_UpsertRemote(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		require.NoError(t, s.entities.UpsertRemote(ctx, remoteTask("a", 5, "server v1")))
		e, err := s.entities.GetEntity(ctx, tasks, "a")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSynced, e.Status)

		// A queued local edit keeps the entity pending after a server write.
		saveTask(t, s, "a", "local")
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "a", models.OperationUpdate))
		require.NoError(t, s.entities.UpsertRemote(ctx, remoteTask("a", 5, "server v2")))

		e, err = s.entities.FindByServerID(ctx, tasks, 5)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, e.Status)

		var task models.Task
		require.NoError(t, json.Unmarshal(e.Payload, &task))
		assert.Equal(t, "server v2", task.Title)

		_, err = s.entities.FindByServerID(ctx, tasks, 6)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestStore_ListAndDeleteEntities(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		saveTask(t, s, "a", "kept")
		s.clock.Advance(time.Millisecond)
		require.NoError(t, s.entities.UpsertRemote(ctx, remoteTask("b", 9, "gone")))

		deleted := remoteTask("b", 9, "gone")
		deleted.Deleted = true
		require.NoError(t, s.entities.SaveLocal(ctx, deleted))
		require.NoError(t, s.pending.Enqueue(ctx, tasks, "b", models.OperationDelete))

		list, err := s.entities.ListEntities(ctx, tasks)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].LocalID)

		require.NoError(t, s.entities.DeleteEntity(ctx, tasks, "b"))
		ops, err := s.pending.ListPending(ctx, tasks)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})
}

func TestStore_CursorOnlyMovesForward(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		ts, err := s.cursors.Cursor(ctx, tasks)
		require.NoError(t, err)
		assert.Zero(t, ts)

		require.NoError(t, s.cursors.AdvanceCursor(ctx, tasks, 200))
		require.NoError(t, s.cursors.AdvanceCursor(ctx, tasks, 100))

		ts, err = s.cursors.Cursor(ctx, tasks)
		require.NoError(t, err)
		assert.Equal(t, int64(200), ts)

		assert.ErrorIs(t, s.cursors.AdvanceCursor(ctx, "", 1), ErrEmptyCollection)
	})
}
