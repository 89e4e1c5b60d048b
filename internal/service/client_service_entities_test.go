// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/mock"
	"github.com/MKhiriev/go-field-sync/internal/store"
	"github.com/MKhiriev/go-field-sync/internal/validators"
	"github.com/MKhiriev/go-field-sync/models"
)

func newTestEntityService(t *testing.T) (*entityService, *store.MemoryStore, *mock.MockSyncRequester) {
	t.Helper()

	ctrl := gomock.NewController(t)
	clock := newFakeClock()
	mem := store.NewMemoryStore().WithClock(clock.Now)
	requester := mock.NewMockSyncRequester(ctrl)

	svc := NewEntityService(mem, mem, &seqIDs{}, requester, []string{models.CollectionTasks, models.CollectionAssets}, logger.Nop()).(*entityService)
	svc.now = clock.Now
	return svc, mem, requester
}

func TestEntityService_Create(t *testing.T) {
	svc, mem, requester := newTestEntityService(t)
	ctx := context.Background()

	requester.EXPECT().RequestSync(models.TriggerLocalChange).Times(1)

	e, err := svc.Create(ctx, "tasks", json.RawMessage(`{"title":"inspect valve"}`))
	require.NoError(t, err)

	assert.Equal(t, "local-1", e.LocalID)
	assert.Nil(t, e.ServerID)
	assert.Equal(t, models.StatusPending, e.Status)

	ops, err := mem.ListPending(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationCreate, ops[0].Kind)
}

func TestEntityService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestEntityService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "invoices", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownCollection)

	_, err = svc.Create(ctx, "tasks", json.RawMessage(`{not json`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = svc.Create(ctx, "tasks", json.RawMessage(`{"status":"open"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.ErrorIs(t, err, validators.ErrEmptyTitle)

	_, err = svc.Create(ctx, "assets", json.RawMessage(`{"name":"pump","tag":"P-1","status":"lost"}`))
	require.ErrorIs(t, err, validators.ErrInvalidStatus)
}

func TestEntityService_UpdateCoalescesWithCreate(t *testing.T) {
	svc, mem, requester := newTestEntityService(t)
	ctx := context.Background()

	requester.EXPECT().RequestSync(models.TriggerLocalChange).Times(2)

	created, err := svc.Create(ctx, "tasks", json.RawMessage(`{"title":"a"}`))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "tasks", created.LocalID, json.RawMessage(`{"title":"b"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"b"}`, string(updated.Payload))

	ops, err := mem.ListPending(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationCreate, ops[0].Kind)
	assert.Equal(t, int64(2), ops[0].Revision)
}

func TestEntityService_Update_NotFound(t *testing.T) {
	svc, _, _ := newTestEntityService(t)

	_, err := svc.Update(context.Background(), "tasks", "missing", json.RawMessage(`{"title":"x"}`))
	require.ErrorIs(t, err, store.ErrEntityNotFound)
}

func TestEntityService_DeleteUnsyncedRemovesImmediately(t *testing.T) {
	svc, mem, requester := newTestEntityService(t)
	ctx := context.Background()

	requester.EXPECT().RequestSync(models.TriggerLocalChange).Times(1)

	created, err := svc.Create(ctx, "tasks", json.RawMessage(`{"title":"a"}`))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "tasks", created.LocalID))

	_, err = svc.Get(ctx, "tasks", created.LocalID)
	require.ErrorIs(t, err, store.ErrEntityNotFound)

	ops, err := mem.ListPending(ctx, "tasks")
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestEntityService_DeleteSyncedQueuesDeletion(t *testing.T) {
	svc, mem, requester := newTestEntityService(t)
	ctx := context.Background()

	serverID := int64(10)
	require.NoError(t, mem.UpsertRemote(ctx, models.RawEntity{
		Collection: "tasks",
		LocalID:    "l10",
		ServerID:   &serverID,
		Payload:    json.RawMessage(`{"title":"a"}`),
	}))

	requester.EXPECT().RequestSync(models.TriggerLocalChange).Times(1)
	require.NoError(t, svc.Delete(ctx, "tasks", "l10"))

	_, err := svc.Get(ctx, "tasks", "l10")
	require.ErrorIs(t, err, store.ErrEntityNotFound)

	list, err := svc.List(ctx, "tasks")
	require.NoError(t, err)
	assert.Empty(t, list)

	ops, err := mem.ListPending(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationDelete, ops[0].Kind)
	require.NotNil(t, ops[0].ServerID)
	assert.Equal(t, int64(10), *ops[0].ServerID)
}

func TestEntityService_Review(t *testing.T) {
	svc, mem, requester := newTestEntityService(t)
	ctx := context.Background()

	requester.EXPECT().RequestSync(gomock.Any()).AnyTimes()

	a, err := svc.Create(ctx, "tasks", json.RawMessage(`{"title":"a"}`))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "tasks", json.RawMessage(`{"title":"b"}`))
	require.NoError(t, err)

	require.NoError(t, mem.Discard(ctx, "tasks", a.LocalID, 0, "rejected"))

	flagged, err := svc.NeedsReview(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, a.LocalID, flagged[0].LocalID)
	assert.Equal(t, "rejected", flagged[0].ReviewReason)

	require.NoError(t, svc.ClearReview(ctx, "tasks", a.LocalID))

	flagged, err = svc.NeedsReview(ctx, "tasks")
	require.NoError(t, err)
	assert.Empty(t, flagged)

	require.ErrorIs(t, svc.ClearReview(ctx, "tasks", "missing"), store.ErrEntityNotFound)
}

func TestEntityService_TypedHelpers(t *testing.T) {
	svc, _, requester := newTestEntityService(t)
	ctx := context.Background()

	requester.EXPECT().RequestSync(gomock.Any()).AnyTimes()

	task, err := CreateEntity(ctx, svc, models.CollectionTasks, models.Task{Title: "replace filter", Status: "open"})
	require.NoError(t, err)
	assert.Equal(t, "replace filter", task.Payload.Title)

	task, err = UpdateEntity(ctx, svc, models.CollectionTasks, task.LocalID, models.Task{Title: "replace filter", Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, "done", task.Payload.Status)

	got, err := GetEntity[models.Task](ctx, svc, models.CollectionTasks, task.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Payload.Status)

	_, err = CreateEntity(ctx, svc, models.CollectionAssets, models.Asset{Name: "pump", Tag: "P-1"})
	require.NoError(t, err)

	assets, err := ListEntities[models.Asset](ctx, svc, models.CollectionAssets)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "P-1", assets[0].Payload.Tag)
}

func TestEntityService_NilRequester(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := NewEntityService(mem, mem, &seqIDs{}, nil, []string{"tasks"}, logger.Nop())

	_, err := svc.Create(context.Background(), "tasks", json.RawMessage(`{"title":"x"}`))
	require.NoError(t, err)
}
