// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-field-sync/models"
)

type memKey struct {
	collection string
	localID    string
}

type memPending struct {
	op  models.PendingOperation
	seq uint64
}

// MemoryStore is a volatile implementation of [PendingOperationStore],
// [LocalEntityRepository] and [SyncCursorRepository] selected with the
// "memory" DSN. It follows the SQLite backend row for row, which makes it the
// store of choice for service tests.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      uint64
	entities map[memKey]models.RawEntity
	pending  map[memKey]*memPending
	cursors  map[string]int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		entities: make(map[memKey]models.RawEntity),
		pending:  make(map[memKey]*memPending),
		cursors:  make(map[string]int64),
	}
}

// WithClock replaces the time source used for enqueue timestamps.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func cloneEntity(e models.RawEntity) models.RawEntity {
	e.Payload = bytes.Clone(e.Payload)
	if e.ServerID != nil {
		id := *e.ServerID
		e.ServerID = &id
	}
	if e.LastSyncAttempt != nil {
		t := *e.LastSyncAttempt
		e.LastSyncAttempt = &t
	}
	return e
}

// Enqueue implements [PendingOperationStore].
func (m *MemoryStore) Enqueue(_ context.Context, collection, localID string, kind models.OperationKind) error {
	if err := validateKey(collection, localID); err != nil {
		return err
	}
	if _, err := models.ParseOperationKind(string(kind)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{collection, localID}
	queued, found := m.pending[key]
	if !found {
		m.seq++
		m.pending[key] = &memPending{
			seq: m.seq,
			op: models.PendingOperation{
				Collection: collection,
				LocalID:    localID,
				Kind:       kind,
				Status:     models.StatusPending,
				Revision:   1,
				EnqueuedAt: time.UnixMilli(m.now().UnixMilli()),
			},
		}
		m.resetEntityLocked(key)
		return nil
	}

	merged, drop := queued.op.Kind.Coalesce(kind)
	if drop {
		delete(m.pending, key)
		if e, ok := m.entities[key]; ok && e.ServerID == nil {
			delete(m.entities, key)
		}
		return nil
	}

	queued.op.Kind = merged
	queued.op.Revision++
	queued.op.Attempts = 0
	queued.op.Status = models.StatusPending
	queued.op.LastSyncAttempt = nil
	queued.op.NextAttemptAt = nil
	queued.op.LastError = ""
	m.resetEntityLocked(key)
	return nil
}

func (m *MemoryStore) resetEntityLocked(key memKey) {
	if e, ok := m.entities[key]; ok {
		e.Status = models.StatusPending
		e.LastSyncAttempt = nil
		m.entities[key] = e
	}
}

// ListPending implements [PendingOperationStore].
func (m *MemoryStore) ListPending(_ context.Context, collection string) ([]models.PendingOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queued := make([]*memPending, 0)
	for key, p := range m.pending {
		if key.collection == collection {
			queued = append(queued, p)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		if !queued[i].op.EnqueuedAt.Equal(queued[j].op.EnqueuedAt) {
			return queued[i].op.EnqueuedAt.Before(queued[j].op.EnqueuedAt)
		}
		return queued[i].seq < queued[j].seq
	})

	var ops []models.PendingOperation
	for _, p := range queued {
		op := p.op
		if op.LastSyncAttempt != nil {
			t := *op.LastSyncAttempt
			op.LastSyncAttempt = &t
		}
		if op.NextAttemptAt != nil {
			t := *op.NextAttemptAt
			op.NextAttemptAt = &t
		}
		if e, ok := m.entities[memKey{collection, op.LocalID}]; ok {
			e = cloneEntity(e)
			op.ServerID = e.ServerID
			op.Payload = e.Payload
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// MarkSynced implements [PendingOperationStore].
func (m *MemoryStore) MarkSynced(_ context.Context, collection, localID string, serverID *int64, revision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{collection, localID}
	queued, found := m.pending[key]

	switch {
	case found && revision != 0 && queued.op.Revision != revision:
		m.recordServerIDLocked(key, serverID)
		return nil
	case found:
		delete(m.pending, key)
		if queued.op.Kind == models.OperationDelete {
			delete(m.entities, key)
			return nil
		}
	}

	if e, ok := m.entities[key]; ok {
		e.Status = models.StatusSynced
		m.entities[key] = e
		m.recordServerIDLocked(key, serverID)
	}
	return nil
}

func (m *MemoryStore) recordServerIDLocked(key memKey, serverID *int64) {
	e, ok := m.entities[key]
	if !ok || serverID == nil {
		return
	}
	id := *serverID
	e.ServerID = &id
	m.entities[key] = e
}

// MarkFailed implements [PendingOperationStore].
func (m *MemoryStore) MarkFailed(_ context.Context, collection, localID string, revision int64, attemptedAt, retryAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{collection, localID}
	queued, found := m.pending[key]
	if !found || (revision != 0 && queued.op.Revision != revision) {
		return nil
	}

	attempted := time.UnixMilli(attemptedAt.UnixMilli())
	retry := time.UnixMilli(retryAt.UnixMilli())
	if queued.op.Status == models.StatusError && queued.op.LastSyncAttempt != nil && queued.op.LastSyncAttempt.Equal(attempted) {
		return nil
	}

	queued.op.Status = models.StatusError
	queued.op.Attempts++
	queued.op.LastSyncAttempt = &attempted
	queued.op.NextAttemptAt = &retry
	queued.op.LastError = reason

	if e, ok := m.entities[key]; ok {
		e.Status = models.StatusError
		e.LastSyncAttempt = &attempted
		m.entities[key] = e
	}
	return nil
}

// Discard implements [PendingOperationStore].
func (m *MemoryStore) Discard(_ context.Context, collection, localID string, revision int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{collection, localID}
	if queued, found := m.pending[key]; found && revision != 0 && queued.op.Revision != revision {
		if e, ok := m.entities[key]; ok {
			e.NeedsReview = true
			e.ReviewReason = reason
			m.entities[key] = e
		}
		return ErrOperationSuperseded
	}

	delete(m.pending, key)
	if e, ok := m.entities[key]; ok {
		e.Status = models.StatusError
		e.NeedsReview = true
		e.ReviewReason = reason
		e.Deleted = false
		m.entities[key] = e
	}
	return nil
}

// SaveLocal implements [LocalEntityRepository].
func (m *MemoryStore) SaveLocal(_ context.Context, entity models.RawEntity) error {
	if err := validateKey(entity.Collection, entity.LocalID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{entity.Collection, entity.LocalID}
	next := cloneEntity(entity)
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = m.now()
	}
	next.UpdatedAt = time.UnixMilli(next.UpdatedAt.UnixMilli())
	next.Status = models.StatusPending

	if prev, ok := m.entities[key]; ok {
		if next.ServerID == nil {
			next.ServerID = prev.ServerID
		}
		next.LastSyncAttempt = prev.LastSyncAttempt
		next.NeedsReview = prev.NeedsReview
		next.ReviewReason = prev.ReviewReason
	} else {
		next.LastSyncAttempt = nil
		next.NeedsReview = false
		next.ReviewReason = ""
	}

	m.entities[key] = next
	return nil
}

// UpsertRemote implements [LocalEntityRepository].
func (m *MemoryStore) UpsertRemote(_ context.Context, entity models.RawEntity) error {
	if err := validateKey(entity.Collection, entity.LocalID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{entity.Collection, entity.LocalID}
	next := cloneEntity(entity)
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = m.now()
	}
	next.UpdatedAt = time.UnixMilli(next.UpdatedAt.UnixMilli())

	_, queued := m.pending[key]
	next.Status = models.StatusSynced
	if queued {
		next.Status = models.StatusPending
	}

	prev, exists := m.entities[key]
	switch {
	case exists:
		if next.ServerID == nil {
			next.ServerID = prev.ServerID
		}
		next.LastSyncAttempt = prev.LastSyncAttempt
		next.NeedsReview = prev.NeedsReview
		next.ReviewReason = prev.ReviewReason
		next.Deleted = queued && prev.Deleted
	default:
		next.LastSyncAttempt = nil
		next.NeedsReview = false
		next.ReviewReason = ""
		next.Deleted = false
	}

	m.entities[key] = next
	return nil
}

// GetEntity implements [LocalEntityRepository].
func (m *MemoryStore) GetEntity(_ context.Context, collection, localID string) (models.RawEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[memKey{collection, localID}]
	if !ok {
		return models.RawEntity{}, ErrEntityNotFound
	}
	return cloneEntity(e), nil
}

// FindByServerID implements [LocalEntityRepository].
func (m *MemoryStore) FindByServerID(_ context.Context, collection string, serverID int64) (models.RawEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entities {
		if key.collection == collection && e.ServerID != nil && *e.ServerID == serverID {
			return cloneEntity(e), nil
		}
	}
	return models.RawEntity{}, ErrEntityNotFound
}

// ListEntities implements [LocalEntityRepository].
func (m *MemoryStore) ListEntities(_ context.Context, collection string) ([]models.RawEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entities []models.RawEntity
	for key, e := range m.entities {
		if key.collection == collection && !e.Deleted {
			entities = append(entities, cloneEntity(e))
		}
	}
	sort.Slice(entities, func(i, j int) bool {
		if !entities[i].UpdatedAt.Equal(entities[j].UpdatedAt) {
			return entities[i].UpdatedAt.Before(entities[j].UpdatedAt)
		}
		return entities[i].LocalID < entities[j].LocalID
	})
	return entities, nil
}

// DeleteEntity implements [LocalEntityRepository].
func (m *MemoryStore) DeleteEntity(_ context.Context, collection, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{collection, localID}
	delete(m.pending, key)
	delete(m.entities, key)
	return nil
}

// SetReview implements [LocalEntityRepository].
func (m *MemoryStore) SetReview(_ context.Context, collection, localID string, needsReview bool, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{collection, localID}
	e, ok := m.entities[key]
	if !ok {
		return ErrEntityNotFound
	}
	e.NeedsReview = needsReview
	e.ReviewReason = reason
	m.entities[key] = e
	return nil
}

// Cursor implements [SyncCursorRepository].
func (m *MemoryStore) Cursor(_ context.Context, collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cursors[collection], nil
}

// AdvanceCursor implements [SyncCursorRepository].
func (m *MemoryStore) AdvanceCursor(_ context.Context, collection string, timestamp int64) error {
	if collection == "" {
		return ErrEmptyCollection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if timestamp > m.cursors[collection] {
		m.cursors[collection] = timestamp
	}
	return nil
}
