// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/mock"
	"github.com/MKhiriev/go-field-sync/internal/store"
	"github.com/MKhiriev/go-field-sync/models"
)

type syncFixture struct {
	o       *syncOrchestrator
	mem     *store.MemoryStore
	adapter *mock.MockSyncAdapter
	tokens  *mock.MockTokenSource
	clock   *fakeClock
}

func defaultSyncOptions() SyncOptions {
	return SyncOptions{
		Collections: []string{models.CollectionTasks},
		StateWindow: 20 * time.Millisecond,
		Backoff:     BackoffPolicy{Base: time.Minute, Max: time.Hour, MaxRetries: 3},
	}
}

func newSyncFixture(t *testing.T, opts SyncOptions) *syncFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	clock := newFakeClock()
	mem := store.NewMemoryStore().WithClock(clock.Now)
	syncAdapter := mock.NewMockSyncAdapter(ctrl)
	tokens := mock.NewMockTokenSource(ctrl)

	o := newSyncOrchestrator(tokens, syncAdapter, mem, mem, mem, &seqIDs{}, opts, clock.Now, logger.Nop())
	t.Cleanup(o.Stop)

	return &syncFixture{o: o, mem: mem, adapter: syncAdapter, tokens: tokens, clock: clock}
}

func (f *syncFixture) tokenOK() {
	f.tokens.EXPECT().ValidToken(gomock.Any()).Return("access-1", nil).AnyTimes()
}

// respond makes the next sync call for collection answer with resp and
// stores the submitted request in *captured when it is not nil.
func (f *syncFixture) respond(collection string, resp models.Result[models.SyncResponse], captured *models.SyncRequest) *gomock.Call {
	return f.adapter.EXPECT().Sync(gomock.Any(), "access-1", collection, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, req models.SyncRequest) models.Result[models.SyncResponse] {
			if captured != nil {
				*captured = req
			}
			return resp
		})
}

// respondAfter runs during while the sync call is in flight and then answers
// with resp.
func (f *syncFixture) respondAfter(collection string, resp models.Result[models.SyncResponse], during func()) *gomock.Call {
	return f.adapter.EXPECT().Sync(gomock.Any(), "access-1", collection, gomock.Any()).
		DoAndReturn(func(context.Context, string, string, models.SyncRequest) models.Result[models.SyncResponse] {
			during()
			return resp
		})
}

func (f *syncFixture) seedLocal(t *testing.T, collection, localID, payload string, kind models.OperationKind) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.mem.SaveLocal(ctx, models.RawEntity{Collection: collection, LocalID: localID, Payload: json.RawMessage(payload)}))
	require.NoError(t, f.mem.Enqueue(ctx, collection, localID, kind))
}

func (f *syncFixture) seedRemote(t *testing.T, collection, localID string, serverID int64, payload string) {
	t.Helper()
	require.NoError(t, f.mem.UpsertRemote(context.Background(), models.RawEntity{
		Collection: collection,
		LocalID:    localID,
		ServerID:   &serverID,
		Payload:    json.RawMessage(payload),
	}))
}

func (f *syncFixture) entity(t *testing.T, collection, localID string) models.RawEntity {
	t.Helper()
	e, err := f.mem.GetEntity(context.Background(), collection, localID)
	require.NoError(t, err)
	return e
}

func (f *syncFixture) pending(t *testing.T, collection string) []models.PendingOperation {
	t.Helper()
	ops, err := f.mem.ListPending(context.Background(), collection)
	require.NoError(t, err)
	return ops
}

func decodeResponse(t *testing.T, body string) models.SyncResponse {
	t.Helper()
	var resp models.SyncResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func ptr(v int64) *int64 { return &v }

// ── push / acknowledge ───────────────────────────────────────────────────────

func TestSyncOrchestrator_PushCreate(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedLocal(t, "tasks", "l1", `{"title":"fix pump"}`, models.OperationCreate)

	var req models.SyncRequest
	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 1000,
		"appliedChanges": [{"id": 55, "localId": "l1"}]
	}`)), &req)

	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	require.Len(t, req.ClientChanges, 1)
	change := req.ClientChanges[0]
	assert.Equal(t, int64(0), req.LastSyncTimestamp)
	assert.Equal(t, "l1", change.LocalID)
	assert.Nil(t, change.ID)
	assert.Equal(t, models.OperationCreate, change.Operation)
	assert.JSONEq(t, `{"title":"fix pump"}`, string(change.Payload))

	e := f.entity(t, "tasks", "l1")
	require.NotNil(t, e.ServerID)
	assert.Equal(t, int64(55), *e.ServerID)
	assert.Equal(t, models.StatusSynced, e.Status)
	assert.Empty(t, f.pending(t, "tasks"))

	cursor, err := f.mem.Cursor(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cursor)

	f.respond("tasks", models.Ok(models.SyncResponse{Timestamp: 1500}), &req)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
	assert.Equal(t, int64(1000), req.LastSyncTimestamp)
	assert.Empty(t, req.ClientChanges)
}

func TestSyncOrchestrator_UpdateAcknowledgedByBareID(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedRemote(t, "tasks", "l10", 10, `{"title":"v1"}`)
	f.seedLocal(t, "tasks", "l10", `{"title":"v2"}`, models.OperationUpdate)

	var req models.SyncRequest
	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 2000,
		"serverChanges": [],
		"conflictResolutions": [],
		"appliedChanges": [10],
		"failedChanges": []
	}`)), &req)

	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	require.Len(t, req.ClientChanges, 1)
	require.NotNil(t, req.ClientChanges[0].ID)
	assert.Equal(t, int64(10), *req.ClientChanges[0].ID)
	assert.Equal(t, models.OperationUpdate, req.ClientChanges[0].Operation)

	e := f.entity(t, "tasks", "l10")
	assert.Equal(t, models.StatusSynced, e.Status)
	assert.JSONEq(t, `{"title":"v2"}`, string(e.Payload))
	assert.Empty(t, f.pending(t, "tasks"))
}

func TestSyncOrchestrator_DeleteAcknowledged(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedRemote(t, "tasks", "l3", 3, `{"title":"old"}`)
	f.seedLocal(t, "tasks", "l3", `{"title":"old"}`, models.OperationDelete)

	var req models.SyncRequest
	f.respond("tasks", models.Ok(decodeResponse(t, `{"timestamp": 10, "appliedChanges": [3]}`)), &req)

	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	require.Len(t, req.ClientChanges, 1)
	assert.True(t, req.ClientChanges[0].Deleted)
	assert.Nil(t, req.ClientChanges[0].Payload)

	_, err := f.mem.GetEntity(ctx, "tasks", "l3")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
}

func TestSyncOrchestrator_DeleteDuringCreateQueuesServerDelete(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()
	entities := NewEntityService(f.mem, f.mem, &seqIDs{}, nil, []string{"tasks"}, logger.Nop())

	f.seedLocal(t, "tasks", "l1", `{"title":"fix pump","status":"open"}`, models.OperationCreate)

	f.respondAfter("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 1000,
		"serverChanges": [{"id": 7, "localId": "l1", "payload": {"title":"fix pump","status":"open"}}],
		"appliedChanges": [{"id": 7, "localId": "l1"}]
	}`)), func() {
		require.NoError(t, entities.Delete(ctx, "tasks", "l1"))
	})
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	live, err := f.mem.ListEntities(ctx, "tasks")
	require.NoError(t, err)
	assert.Empty(t, live, "deleted entity must not come back")
	_, err = entities.Get(ctx, "tasks", "l1")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)

	ops := f.pending(t, "tasks")
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationDelete, ops[0].Kind)
	require.NotNil(t, ops[0].ServerID)
	assert.Equal(t, int64(7), *ops[0].ServerID)

	// The same entity reported again by a later round stays hidden.
	var req models.SyncRequest
	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 1100,
		"serverChanges": [{"id": 7, "payload": {"title":"fix pump","status":"open"}}]
	}`)), &req)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
	require.Len(t, req.ClientChanges, 1)
	assert.Equal(t, models.OperationDelete, req.ClientChanges[0].Operation)
	require.NotNil(t, req.ClientChanges[0].ID)
	assert.Equal(t, int64(7), *req.ClientChanges[0].ID)

	live, err = f.mem.ListEntities(ctx, "tasks")
	require.NoError(t, err)
	assert.Empty(t, live)

	f.respond("tasks", models.Ok(decodeResponse(t, `{"timestamp": 1200, "appliedChanges": [{"id": 7, "localId": "l1"}]}`)), nil)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
	assert.Empty(t, f.pending(t, "tasks"))
	_, err = f.mem.GetEntity(ctx, "tasks", "l1")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
}

// ── conflicts / failures ─────────────────────────────────────────────────────

func TestSyncOrchestrator_ConflictResolutionFlagsReview(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedRemote(t, "tasks", "l5", 5, `{"title":"base"}`)
	f.seedLocal(t, "tasks", "l5", `{"title":"mine"}`, models.OperationUpdate)

	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 3000,
		"conflictResolutions": [
			{"id": 5, "resolution": {"title": "theirs"}, "conflictType": "version_mismatch"}
		]
	}`)), nil)

	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	e := f.entity(t, "tasks", "l5")
	assert.JSONEq(t, `{"title":"theirs"}`, string(e.Payload))
	assert.Equal(t, models.StatusSynced, e.Status)
	assert.True(t, e.NeedsReview)
	assert.Contains(t, e.ReviewReason, "version_mismatch")
	assert.Empty(t, f.pending(t, "tasks"))
}

func TestSyncOrchestrator_TransientChangeFailureBacksOff(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedLocal(t, "tasks", "l1", `{"title":"a"}`, models.OperationCreate)

	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 1000,
		"failedChanges": [{"localId": "l1", "reason": "storage busy", "code": 503}]
	}`)), nil)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	ops := f.pending(t, "tasks")
	require.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].Attempts)
	assert.Equal(t, models.StatusError, ops[0].Status)
	assert.Equal(t, "storage busy", ops[0].LastError)
	require.NotNil(t, ops[0].NextAttemptAt)
	assert.True(t, ops[0].NextAttemptAt.Equal(f.clock.Now().Add(time.Minute)))

	var req models.SyncRequest
	f.respond("tasks", models.Ok(models.SyncResponse{Timestamp: 1100}), &req)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
	assert.Empty(t, req.ClientChanges, "operation inside its backoff window is held back")

	f.clock.Advance(2 * time.Minute)
	f.respond("tasks", models.Ok(decodeResponse(t, `{"timestamp": 1200, "appliedChanges": [{"id": 1, "localId": "l1"}]}`)), &req)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
	require.Len(t, req.ClientChanges, 1)
	assert.Empty(t, f.pending(t, "tasks"))
}

func TestSyncOrchestrator_PermanentChangeFailureDiscards(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedLocal(t, "tasks", "l1", `{"title":""}`, models.OperationCreate)

	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 1000,
		"failedChanges": [{"localId": "l1", "reason": "title required", "code": 422}]
	}`)), nil)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	assert.Empty(t, f.pending(t, "tasks"))
	e := f.entity(t, "tasks", "l1")
	assert.True(t, e.NeedsReview)
	assert.Equal(t, models.StatusError, e.Status)
	assert.Contains(t, e.ReviewReason, "422")
	assert.Contains(t, e.ReviewReason, "title required")
}

func TestSyncOrchestrator_RetryBudgetExhausted(t *testing.T) {
	opts := defaultSyncOptions()
	opts.Backoff.MaxRetries = 1
	f := newSyncFixture(t, opts)
	f.tokenOK()
	ctx := context.Background()

	f.seedLocal(t, "tasks", "l1", `{"title":"a"}`, models.OperationCreate)

	f.respond("tasks", models.Ok(decodeResponse(t, `{"timestamp": 1000, "failedChanges": [{"localId": "l1", "reason": "busy", "code": 429}]}`)), nil)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
	require.Len(t, f.pending(t, "tasks"), 1)

	f.clock.Advance(time.Hour)
	f.respond("tasks", models.Ok(decodeResponse(t, `{"timestamp": 2000, "failedChanges": [{"localId": "l1", "reason": "busy", "code": 429}]}`)), nil)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	assert.Empty(t, f.pending(t, "tasks"))
	e := f.entity(t, "tasks", "l1")
	assert.True(t, e.NeedsReview)
	assert.Contains(t, e.ReviewReason, "retries exhausted")
}

func TestSyncOrchestrator_FailureKeepsEditMadeInFlight(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantReview bool
	}{
		{name: "permanent", code: 422, wantReview: true},
		{name: "transient", code: 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t, defaultSyncOptions())
			f.tokenOK()
			ctx := context.Background()

			f.seedLocal(t, "tasks", "l1", `{"title":"v1-bad"}`, models.OperationCreate)

			body := fmt.Sprintf(`{"timestamp": 1000, "failedChanges": [{"localId": "l1", "reason": "rejected", "code": %d}]}`, tt.code)
			f.respondAfter("tasks", models.Ok(decodeResponse(t, body)), func() {
				f.seedLocal(t, "tasks", "l1", `{"title":"v2-good"}`, models.OperationUpdate)
			})
			require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

			ops := f.pending(t, "tasks")
			require.Len(t, ops, 1)
			assert.Equal(t, int64(2), ops[0].Revision)
			assert.Equal(t, models.OperationCreate, ops[0].Kind)
			assert.Equal(t, models.StatusPending, ops[0].Status)
			assert.Equal(t, 0, ops[0].Attempts)
			assert.Nil(t, ops[0].NextAttemptAt)
			assert.JSONEq(t, `{"title":"v2-good"}`, string(ops[0].Payload))

			e := f.entity(t, "tasks", "l1")
			assert.Equal(t, models.StatusPending, e.Status)
			assert.Equal(t, tt.wantReview, e.NeedsReview)
			if tt.wantReview {
				assert.Contains(t, e.ReviewReason, "422")
			}

			// The newer revision goes out on the very next round.
			var req models.SyncRequest
			f.respond("tasks", models.Ok(decodeResponse(t, `{"timestamp": 1100, "appliedChanges": [{"id": 9, "localId": "l1"}]}`)), &req)
			require.NoError(t, f.o.SyncCollection(ctx, "tasks"))
			require.Len(t, req.ClientChanges, 1)
			assert.JSONEq(t, `{"title":"v2-good"}`, string(req.ClientChanges[0].Payload))
			assert.Empty(t, f.pending(t, "tasks"))
		})
	}
}

func TestSyncOrchestrator_ConflictKeepsEditMadeInFlight(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedRemote(t, "tasks", "l5", 5, `{"title":"base"}`)
	f.seedLocal(t, "tasks", "l5", `{"title":"mine"}`, models.OperationUpdate)

	f.respondAfter("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 3000,
		"conflictResolutions": [
			{"id": 5, "resolution": {"title": "theirs"}, "conflictType": "version_mismatch"}
		]
	}`)), func() {
		f.seedLocal(t, "tasks", "l5", `{"title":"mine again"}`, models.OperationUpdate)
	})
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	e := f.entity(t, "tasks", "l5")
	assert.JSONEq(t, `{"title":"mine again"}`, string(e.Payload))
	assert.Equal(t, models.StatusPending, e.Status)
	assert.True(t, e.NeedsReview)
	assert.Contains(t, e.ReviewReason, "version_mismatch")

	ops := f.pending(t, "tasks")
	require.Len(t, ops, 1)
	assert.Equal(t, int64(2), ops[0].Revision)
	require.NotNil(t, ops[0].ServerID)
	assert.Equal(t, int64(5), *ops[0].ServerID)
}

func TestSyncOrchestrator_FailedCallLeavesStoresUntouched(t *testing.T) {
	tests := []struct {
		name   string
		result models.Result[models.SyncResponse]
		want   error
	}{
		{name: "server error", result: models.Fail[models.SyncResponse]("unavailable", 503), want: ErrSyncRejected},
		{name: "offline", result: models.Fail[models.SyncResponse]("connection refused", 0), want: ErrSyncTransport},
		{name: "conflict", result: models.Fail[models.SyncResponse]("sync in progress", 409), want: ErrSyncConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t, defaultSyncOptions())
			f.tokenOK()
			ctx := context.Background()

			f.seedLocal(t, "tasks", "l1", `{"title":"a"}`, models.OperationCreate)
			require.NoError(t, f.mem.AdvanceCursor(ctx, "tasks", 500))
			before := f.pending(t, "tasks")

			f.respond("tasks", tt.result, nil)
			err := f.o.SyncNow(ctx)
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, f.pending(t, "tasks"))
			assert.Equal(t, models.StatusPending, f.entity(t, "tasks", "l1").Status)
			cursor, err := f.mem.Cursor(ctx, "tasks")
			require.NoError(t, err)
			assert.Equal(t, int64(500), cursor)

			st := f.o.State()
			assert.NotEmpty(t, st.LastError)
		})
	}
}

func TestSyncOrchestrator_UnauthorizedExpiresToken(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	f.tokens.EXPECT().ExpireAccessToken(gomock.Any()).Times(1)

	f.respond("tasks", models.Fail[models.SyncResponse]("token expired", 401), nil)

	err := f.o.SyncCollection(context.Background(), "tasks")
	require.ErrorIs(t, err, ErrSyncRejected)

	var syncErr *SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Equal(t, 401, syncErr.Code)
}

// ── server changes / idempotency / cursor ────────────────────────────────────

func TestSyncOrchestrator_AppliesServerChanges(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.seedRemote(t, "tasks", "l20", 20, `{"title":"old"}`)
	f.seedRemote(t, "tasks", "l22", 22, `{"title":"gone soon"}`)

	f.respond("tasks", models.Ok(decodeResponse(t, `{
		"timestamp": 4000,
		"serverChanges": [
			{"id": 20, "payload": {"title":"new"}},
			{"id": 30, "payload": {"title":"fresh"}},
			{"id": 22, "deleted": true},
			{"id": 99, "deleted": true},
			{"localId": "unknown", "payload": {"title":"orphan"}}
		]
	}`)), nil)

	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	e := f.entity(t, "tasks", "l20")
	assert.JSONEq(t, `{"title":"new"}`, string(e.Payload))
	assert.Equal(t, models.StatusSynced, e.Status)

	created, err := f.mem.FindByServerID(ctx, "tasks", 30)
	require.NoError(t, err)
	assert.Equal(t, "local-1", created.LocalID)
	assert.JSONEq(t, `{"title":"fresh"}`, string(created.Payload))

	_, err = f.mem.GetEntity(ctx, "tasks", "l22")
	assert.ErrorIs(t, err, store.ErrEntityNotFound)

	all, err := f.mem.ListEntities(ctx, "tasks")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSyncOrchestrator_ApplyIsIdempotent(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	ctx := context.Background()

	f.seedLocal(t, "tasks", "l1", `{"title":"a"}`, models.OperationCreate)
	f.seedRemote(t, "tasks", "l5", 5, `{"title":"base"}`)
	f.seedLocal(t, "tasks", "l5", `{"title":"mine"}`, models.OperationUpdate)
	f.seedLocal(t, "tasks", "l6", `{"title":"b"}`, models.OperationCreate)

	ops := f.pending(t, "tasks")
	batch := newSyncBatch(ops, f.clock.Now())

	resp := decodeResponse(t, `{
		"timestamp": 5000,
		"serverChanges": [{"id": 77, "payload": {"title":"remote"}, "updatedAt": "2026-03-01T11:00:00Z"}],
		"appliedChanges": [{"id": 55, "localId": "l1"}],
		"conflictResolutions": [{"id": 5, "resolution": {"title":"theirs"}, "conflictType": "stale"}],
		"failedChanges": [{"localId": "l6", "reason": "busy", "code": 503}]
	}`)

	require.NoError(t, f.o.apply(ctx, "tasks", batch, resp))
	entitiesOnce, err := f.mem.ListEntities(ctx, "tasks")
	require.NoError(t, err)
	pendingOnce := f.pending(t, "tasks")

	require.NoError(t, f.o.apply(ctx, "tasks", batch, resp))
	entitiesTwice, err := f.mem.ListEntities(ctx, "tasks")
	require.NoError(t, err)

	assert.Equal(t, entitiesOnce, entitiesTwice)
	assert.Equal(t, pendingOnce, f.pending(t, "tasks"))
	require.Len(t, pendingOnce, 1)
	assert.Equal(t, 1, pendingOnce[0].Attempts)
}

func TestSyncOrchestrator_CursorNeverMovesBackwards(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	require.NoError(t, f.mem.AdvanceCursor(ctx, "tasks", 5000))

	var req models.SyncRequest
	f.respond("tasks", models.Ok(models.SyncResponse{Timestamp: 4000}), &req)
	require.NoError(t, f.o.SyncCollection(ctx, "tasks"))

	assert.Equal(t, int64(5000), req.LastSyncTimestamp)
	cursor, err := f.mem.Cursor(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cursor)
}

// ── cycle / state machine ────────────────────────────────────────────────────

func TestSyncOrchestrator_UnknownCollection(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())

	err := f.o.SyncCollection(context.Background(), "invoices")
	require.ErrorIs(t, err, ErrUnknownCollection)
}

func TestSyncOrchestrator_SessionExpiredAbortsCycle(t *testing.T) {
	opts := defaultSyncOptions()
	opts.Collections = []string{models.CollectionTasks, models.CollectionAssets}
	f := newSyncFixture(t, opts)

	f.tokens.EXPECT().ValidToken(gomock.Any()).Return("", notAuthenticated()).Times(1)

	err := f.o.SyncNow(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, models.SyncError, f.o.State().Phase)
}

func TestSyncOrchestrator_FailingCollectionDoesNotBlockOthers(t *testing.T) {
	opts := defaultSyncOptions()
	opts.Collections = []string{models.CollectionTasks, models.CollectionAssets}
	f := newSyncFixture(t, opts)
	f.tokenOK()
	ctx := context.Background()

	f.respond("tasks", models.Fail[models.SyncResponse]("unavailable", 503), nil)
	f.respond("assets", models.Ok(models.SyncResponse{Timestamp: 700}), nil)

	err := f.o.SyncNow(ctx)
	require.ErrorIs(t, err, ErrSyncRejected)

	cursor, err := f.mem.Cursor(ctx, "assets")
	require.NoError(t, err)
	assert.Equal(t, int64(700), cursor)
}

func TestSyncOrchestrator_LocalStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mock.NewMockTokenSource(ctrl)
	pending := mock.NewMockPendingOperationStore(ctrl)
	entities := mock.NewMockLocalEntityRepository(ctrl)
	cursors := mock.NewMockSyncCursorRepository(ctrl)
	syncAdapter := mock.NewMockSyncAdapter(ctrl)

	tokens.EXPECT().ValidToken(gomock.Any()).Return("access-1", nil)
	cursors.EXPECT().Cursor(gomock.Any(), "tasks").Return(int64(0), nil)
	pending.EXPECT().ListPending(gomock.Any(), "tasks").Return(nil, errors.New("disk I/O error"))

	o := newSyncOrchestrator(tokens, syncAdapter, pending, entities, cursors, &seqIDs{}, defaultSyncOptions(), time.Now, logger.Nop())

	err := o.SyncCollection(context.Background(), "tasks")
	require.ErrorIs(t, err, ErrLocalStore)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestSyncOrchestrator_CursorNotAdvancedWhenApplyFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mock.NewMockTokenSource(ctrl)
	pending := mock.NewMockPendingOperationStore(ctrl)
	entities := mock.NewMockLocalEntityRepository(ctrl)
	cursors := mock.NewMockSyncCursorRepository(ctrl)
	syncAdapter := mock.NewMockSyncAdapter(ctrl)

	tokens.EXPECT().ValidToken(gomock.Any()).Return("access-1", nil)
	cursors.EXPECT().Cursor(gomock.Any(), "tasks").Return(int64(100), nil)
	pending.EXPECT().ListPending(gomock.Any(), "tasks").Return(nil, nil)
	syncAdapter.EXPECT().Sync(gomock.Any(), "access-1", "tasks", gomock.Any()).
		Return(models.Ok(models.SyncResponse{
			Timestamp:     200,
			ServerChanges: []models.EntityChange{{ID: ptr(1), Payload: json.RawMessage(`{}`)}},
		}))
	entities.EXPECT().FindByServerID(gomock.Any(), "tasks", int64(1)).Return(models.RawEntity{}, store.ErrEntityNotFound)
	entities.EXPECT().UpsertRemote(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))
	cursors.EXPECT().AdvanceCursor(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	o := newSyncOrchestrator(tokens, syncAdapter, pending, entities, cursors, &seqIDs{}, defaultSyncOptions(), time.Now, logger.Nop())

	err := o.SyncCollection(context.Background(), "tasks")
	require.ErrorIs(t, err, ErrLocalStore)
}

func TestSyncOrchestrator_StateTransitions(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	states, cancel := f.o.Subscribe()
	defer cancel()

	f.respond("tasks", models.Ok(models.SyncResponse{Timestamp: 1}), nil)
	require.NoError(t, f.o.SyncNow(ctx))

	got := collect(states, 150*time.Millisecond)
	phases := make([]models.SyncPhase, 0, len(got))
	for _, st := range got {
		phases = append(phases, st.Phase)
	}
	assert.Equal(t, []models.SyncPhase{
		models.SyncIdle,
		models.SyncSyncing,
		models.SyncSyncing,
		models.SyncCompleted,
		models.SyncIdle,
	}, phases)
	assert.Equal(t, 100, got[3].Progress)
	assert.Equal(t, "tasks", got[2].Collection)
}

func TestSyncOrchestrator_ErrorStateKeepsLastError(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()
	ctx := context.Background()

	f.respond("tasks", models.Fail[models.SyncResponse]("unavailable", 503), nil)
	require.Error(t, f.o.SyncNow(ctx))

	assert.Equal(t, models.SyncError, f.o.State().Phase)
	require.Eventually(t, func() bool {
		return f.o.State().Phase == models.SyncIdle
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, f.o.State().LastError, "503")

	states, cancel := f.o.Subscribe()
	defer cancel()

	f.respond("tasks", models.Ok(models.SyncResponse{Timestamp: 1}), nil)
	require.NoError(t, f.o.SyncNow(ctx))

	got := collect(states, 100*time.Millisecond)
	require.GreaterOrEqual(t, len(got), 2)
	assert.NotEmpty(t, got[0].LastError)
	assert.Equal(t, models.SyncSyncing, got[1].Phase)
	assert.Empty(t, got[1].LastError)
}

func TestSyncOrchestrator_RequestsCoalesceWhileRunning(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())
	f.tokenOK()

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	f.adapter.EXPECT().Sync(gomock.Any(), "access-1", "tasks", gomock.Any()).
		DoAndReturn(func(context.Context, string, string, models.SyncRequest) models.Result[models.SyncResponse] {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return models.Ok(models.SyncResponse{Timestamp: 1})
		}).
		AnyTimes()

	f.o.Start(context.Background())
	f.o.RequestSync(models.TriggerUser)
	<-entered

	for range 5 {
		f.o.RequestSync(models.TriggerLocalChange)
	}
	close(release)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSyncOrchestrator_StopWaitsForRunner(t *testing.T) {
	f := newSyncFixture(t, defaultSyncOptions())

	f.o.Start(context.Background())
	f.o.Stop()
	f.o.Stop()

	// no runner: the request stays queued and nothing calls the adapter
	f.o.RequestSync(models.TriggerTimer)
	time.Sleep(20 * time.Millisecond)
}
