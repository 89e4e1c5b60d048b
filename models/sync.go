// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SyncStatus is the local synchronisation status of a stored entity.
type SyncStatus string

const (
	// StatusSynced means the local copy matches the server.
	StatusSynced SyncStatus = "synced"
	// StatusPending means a local mutation waits for acknowledgement.
	StatusPending SyncStatus = "pending"
	// StatusError means the last attempt to sync the entity failed.
	StatusError SyncStatus = "error"
)

// OperationKind is the kind of local mutation recorded in the pending store.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// ParseOperationKind converts the persisted representation back into an
// [OperationKind].
func ParseOperationKind(s string) (OperationKind, error) {
	switch k := OperationKind(s); k {
	case OperationCreate, OperationUpdate, OperationDelete:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperationKind, s)
}

// Coalesce merges a newer operation kind into an already queued one for the
// same entity. drop is true when the two cancel out (an entity created and
// deleted before it ever reached the server).
func (k OperationKind) Coalesce(next OperationKind) (merged OperationKind, drop bool) {
	switch {
	case k == OperationCreate && next == OperationDelete:
		return "", true
	case k == OperationCreate:
		return OperationCreate, false
	default:
		return next, false
	}
}

// SyncEntity wraps a locally stored domain record with its sync bookkeeping.
// ServerID stays nil for client-created records until the server assigns an
// id on the first successful sync.
type SyncEntity[T any] struct {
	Collection      string     `json:"collection"`
	LocalID         string     `json:"localId"`
	ServerID        *int64     `json:"serverId,omitempty"`
	Payload         T          `json:"payload"`
	Status          SyncStatus `json:"status"`
	LastSyncAttempt *time.Time `json:"lastSyncAttempt,omitempty"`
	NeedsReview     bool       `json:"needsReview,omitempty"`
	ReviewReason    string     `json:"reviewReason,omitempty"`
	// Deleted marks a local deletion that waits for acknowledgement; the
	// row is removed once the server accepts it.
	Deleted   bool      `json:"deleted,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RawEntity is the storage form of a [SyncEntity]: the payload is kept as
// opaque JSON so a single store serves every collection.
type RawEntity = SyncEntity[json.RawMessage]

// DecodeEntity converts a stored entity into its typed form.
func DecodeEntity[T any](raw RawEntity) (SyncEntity[T], error) {
	var payload T
	if len(raw.Payload) > 0 {
		if err := json.Unmarshal(raw.Payload, &payload); err != nil {
			return SyncEntity[T]{}, fmt.Errorf("decode %s/%s payload: %w", raw.Collection, raw.LocalID, err)
		}
	}

	return SyncEntity[T]{
		Collection:      raw.Collection,
		LocalID:         raw.LocalID,
		ServerID:        raw.ServerID,
		Payload:         payload,
		Status:          raw.Status,
		LastSyncAttempt: raw.LastSyncAttempt,
		NeedsReview:     raw.NeedsReview,
		ReviewReason:    raw.ReviewReason,
		Deleted:         raw.Deleted,
		UpdatedAt:       raw.UpdatedAt,
	}, nil
}

// EncodeEntity converts a typed entity into its storage form.
func EncodeEntity[T any](e SyncEntity[T]) (RawEntity, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return RawEntity{}, fmt.Errorf("encode %s/%s payload: %w", e.Collection, e.LocalID, err)
	}

	return RawEntity{
		Collection:      e.Collection,
		LocalID:         e.LocalID,
		ServerID:        e.ServerID,
		Payload:         payload,
		Status:          e.Status,
		LastSyncAttempt: e.LastSyncAttempt,
		NeedsReview:     e.NeedsReview,
		ReviewReason:    e.ReviewReason,
		Deleted:         e.Deleted,
		UpdatedAt:       e.UpdatedAt,
	}, nil
}

// PendingOperation is a queued local mutation together with the entity
// snapshot it refers to.
type PendingOperation struct {
	Collection string
	LocalID    string
	ServerID   *int64
	Kind       OperationKind
	Payload    json.RawMessage
	Status     SyncStatus

	// Attempts counts failed submissions since the last local edit.
	Attempts int
	// Revision grows on every enqueue for the same entity. A sync
	// acknowledgement only clears the operation when it refers to the
	// revision that is still queued.
	Revision int64

	EnqueuedAt      time.Time
	LastSyncAttempt *time.Time
	NextAttemptAt   *time.Time
	LastError       string
}

// Eligible reports whether the operation may be submitted at now, that is
// its backoff window (if any) has elapsed.
func (p PendingOperation) Eligible(now time.Time) bool {
	return p.NextAttemptAt == nil || !now.Before(*p.NextAttemptAt)
}

// EntityChange is one entity on the wire, used both for client changes and
// for server changes.
type EntityChange struct {
	ID        *int64          `json:"id,omitempty"`
	LocalID   string          `json:"localId,omitempty"`
	Operation OperationKind   `json:"operation,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// SyncRequest is the body of a sync call for one collection.
type SyncRequest struct {
	LastSyncTimestamp int64          `json:"lastSyncTimestamp"`
	ClientChanges     []EntityChange `json:"clientChanges"`
}

// ChangeRef identifies a client change acknowledged by the server. On the
// wire it is either a bare server id (`10`) or an object
// `{"id": 10, "localId": "..."}`.
type ChangeRef struct {
	ID      *int64 `json:"id,omitempty"`
	LocalID string `json:"localId,omitempty"`
}

// UnmarshalJSON accepts both the numeric and the object form.
func (r *ChangeRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		var id int64
		if err := json.Unmarshal(b, &id); err != nil {
			return fmt.Errorf("decode change ref: %w", err)
		}
		*r = ChangeRef{ID: &id}
		return nil
	}

	type plain ChangeRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("decode change ref: %w", err)
	}
	*r = ChangeRef(p)
	return nil
}

// ConflictResolution is the server's authoritative value for a client change
// that collided with another change.
type ConflictResolution struct {
	ID           *int64          `json:"id,omitempty"`
	LocalID      string          `json:"localId,omitempty"`
	Resolution   json.RawMessage `json:"resolution"`
	ConflictType string          `json:"conflictType"`
}

// Ref returns the identity of the conflicting change.
func (c ConflictResolution) Ref() ChangeRef {
	return ChangeRef{ID: c.ID, LocalID: c.LocalID}
}

// FailedChange is a client change the server rejected.
type FailedChange struct {
	ID      *int64 `json:"id,omitempty"`
	LocalID string `json:"localId,omitempty"`
	Reason  string `json:"reason"`
	Code    int    `json:"code"`
}

// Ref returns the identity of the rejected change.
func (f FailedChange) Ref() ChangeRef {
	return ChangeRef{ID: f.ID, LocalID: f.LocalID}
}

// SyncResponse is the server answer to a [SyncRequest].
type SyncResponse struct {
	// Timestamp is the new cursor value (Unix milliseconds).
	Timestamp           int64                `json:"timestamp"`
	ServerChanges       []EntityChange       `json:"serverChanges"`
	ConflictResolutions []ConflictResolution `json:"conflictResolutions"`
	AppliedChanges      []ChangeRef          `json:"appliedChanges"`
	FailedChanges       []FailedChange       `json:"failedChanges"`
}
