// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-field-sync/internal/adapter"
	"github.com/MKhiriev/go-field-sync/internal/app"
	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/store"
	"github.com/MKhiriev/go-field-sync/internal/utils"
	"github.com/MKhiriev/go-field-sync/models"
)

const defaultStateWindow = 3 * time.Second

// SyncOptions tunes the orchestrator.
type SyncOptions struct {
	// Collections are synchronised in this order on every cycle.
	Collections []string
	// StateWindow is how long Completed and Error stay visible before the
	// state reverts to Idle.
	StateWindow time.Duration
	Backoff     BackoffPolicy
}

type syncOrchestrator struct {
	tokens   TokenSource
	adapter  adapter.SyncAdapter
	pending  store.PendingOperationStore
	entities store.LocalEntityRepository
	cursors  store.SyncCursorRepository
	ids      IDGenerator
	opts     SyncOptions
	now      func() time.Time
	logger   *logger.Logger

	// cycleMu serialises full cycles, collectionLocks serialise the work on
	// one collection (a direct SyncCollection may race a cycle).
	cycleMu         sync.Mutex
	collectionLocks map[string]*sync.Mutex

	stateMu    sync.Mutex
	state      *utils.Subject[models.SyncState]
	generation uint64
	revert     *time.Timer

	triggers chan models.SyncTrigger

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncOrchestrator wires the orchestrator. The runner serving RequestSync
// is idle until Start is called.
func NewSyncOrchestrator(
	tokens TokenSource,
	syncAdapter adapter.SyncAdapter,
	pending store.PendingOperationStore,
	entities store.LocalEntityRepository,
	cursors store.SyncCursorRepository,
	ids IDGenerator,
	opts SyncOptions,
	logger *logger.Logger,
) SyncOrchestrator {
	return newSyncOrchestrator(tokens, syncAdapter, pending, entities, cursors, ids, opts, time.Now, logger)
}

func newSyncOrchestrator(
	tokens TokenSource,
	syncAdapter adapter.SyncAdapter,
	pending store.PendingOperationStore,
	entities store.LocalEntityRepository,
	cursors store.SyncCursorRepository,
	ids IDGenerator,
	opts SyncOptions,
	now func() time.Time,
	logger *logger.Logger,
) *syncOrchestrator {
	if opts.StateWindow < 0 {
		opts.StateWindow = defaultStateWindow
	}

	locks := make(map[string]*sync.Mutex, len(opts.Collections))
	for _, c := range opts.Collections {
		locks[c] = &sync.Mutex{}
	}

	return &syncOrchestrator{
		tokens:          tokens,
		adapter:         syncAdapter,
		pending:         pending,
		entities:        entities,
		cursors:         cursors,
		ids:             ids,
		opts:            opts,
		now:             now,
		logger:          logger,
		collectionLocks: locks,
		state:           utils.NewSubject(models.SyncState{Phase: models.SyncIdle, At: now()}),
		triggers:        make(chan models.SyncTrigger, 1),
	}
}

func (o *syncOrchestrator) RequestSync(trigger models.SyncTrigger) {
	select {
	case o.triggers <- trigger:
		o.logger.Debug().Str("func", "syncOrchestrator.RequestSync").Str("trigger", string(trigger)).Msg("sync requested")
	default:
		o.logger.Debug().Str("func", "syncOrchestrator.RequestSync").Str("trigger", string(trigger)).Msg("sync already scheduled, request coalesced")
	}
}

func (o *syncOrchestrator) Start(ctx context.Context) {
	o.Stop()

	o.runMu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.wg.Add(1)
	o.runMu.Unlock()

	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case trigger := <-o.triggers:
				_ = o.runCycle(runCtx, trigger)
			}
		}
	}()
}

func (o *syncOrchestrator) Stop() {
	o.runMu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.runMu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

func (o *syncOrchestrator) SyncNow(ctx context.Context) error {
	return o.runCycle(ctx, models.TriggerUser)
}

func (o *syncOrchestrator) State() models.SyncState {
	return o.state.Value()
}

func (o *syncOrchestrator) Subscribe() (<-chan models.SyncState, func()) {
	return o.state.Subscribe()
}

// runCycle syncs every collection in order. A failing collection does not
// stop the others unless the session itself is unusable.
func (o *syncOrchestrator) runCycle(ctx context.Context, trigger models.SyncTrigger) error {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	log := logger.FromContextOr(ctx, o.logger).With().
		Str("func", "syncOrchestrator.runCycle").
		Str("trigger", string(trigger)).
		Logger()
	ctx = log.WithContext(ctx)

	started := o.now()
	o.begin()
	log.Info().Msg("sync cycle started")

	var firstErr error
	total := len(o.opts.Collections)
	for i, collection := range o.opts.Collections {
		o.progress(i*100/total, collection)

		err := o.SyncCollection(ctx, collection)
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}

		var authErr *AuthError
		if errors.As(err, &authErr) || ctx.Err() != nil {
			break
		}
	}

	if firstErr != nil {
		o.finish(models.SyncError, firstErr.Error())
		log.Error().Err(firstErr).Dur("took", o.now().Sub(started)).Msg("sync cycle failed")
		return firstErr
	}

	o.finish(models.SyncCompleted, "")
	log.Info().Dur("took", o.now().Sub(started)).Msg("sync cycle completed")
	return nil
}

func (o *syncOrchestrator) SyncCollection(ctx context.Context, collection string) error {
	lock, ok := o.collectionLocks[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	lock.Lock()
	defer lock.Unlock()

	log := logger.FromContextOr(ctx, o.logger).With().
		Str("func", "syncOrchestrator.SyncCollection").
		Str("collection", collection).
		Logger()
	ctx = log.WithContext(ctx)

	token, err := o.tokens.ValidToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("no usable token, skipping collection")
		return err
	}

	cursor, err := o.cursors.Cursor(ctx, collection)
	if err != nil {
		return localStoreError(collection, err)
	}
	ops, err := o.pending.ListPending(ctx, collection)
	if err != nil {
		return localStoreError(collection, err)
	}

	batch := newSyncBatch(ops, o.now())
	if batch.heldBack > 0 {
		log.Debug().Int("held_back", batch.heldBack).Msg("operations waiting for their backoff window")
	}

	resp, failure, ok := models.Split(o.adapter.Sync(ctx, token, collection, batch.request(cursor)))
	if !ok {
		if failure.Unauthorized() {
			o.tokens.ExpireAccessToken(ctx)
		}
		syncErr := mapSyncFailure(collection, failure)
		log.Warn().Int("code", failure.Code).Str("reason", failure.Message).Msg("sync call failed, local state untouched")
		return syncErr
	}

	if err = o.apply(ctx, collection, batch, resp); err != nil {
		return localStoreError(collection, err)
	}
	if err = o.cursors.AdvanceCursor(ctx, collection, resp.Timestamp); err != nil {
		return localStoreError(collection, err)
	}

	log.Info().
		Int("submitted", len(batch.ops)).
		Int("server_changes", len(resp.ServerChanges)).
		Int("applied", len(resp.AppliedChanges)).
		Int("conflicts", len(resp.ConflictResolutions)).
		Int("failed", len(resp.FailedChanges)).
		Int64("cursor", resp.Timestamp).
		Msg("collection synced")
	return nil
}

// apply folds a sync response into the local stores. Every step is
// idempotent, so a response applied twice (crash before the cursor moved)
// leaves the same state.
func (o *syncOrchestrator) apply(ctx context.Context, collection string, batch *syncBatch, resp models.SyncResponse) error {
	// Before server changes, so an echo of the created entity finds the
	// tombstone instead of resurrecting it.
	for _, ref := range resp.AppliedChanges {
		if err := o.tombstoneDeletedCreate(ctx, collection, batch, ref); err != nil {
			return err
		}
	}
	for _, change := range resp.ServerChanges {
		if err := o.applyServerChange(ctx, collection, change); err != nil {
			return err
		}
	}
	for _, ref := range resp.AppliedChanges {
		if err := o.applyAcknowledgement(ctx, collection, batch, ref); err != nil {
			return err
		}
	}
	for _, conflict := range resp.ConflictResolutions {
		if err := o.applyConflict(ctx, collection, batch, conflict); err != nil {
			return err
		}
	}

	attemptedAt := o.now()
	if resp.Timestamp > 0 {
		attemptedAt = time.UnixMilli(resp.Timestamp)
	}
	for _, failed := range resp.FailedChanges {
		if err := o.applyFailure(ctx, collection, batch, failed, attemptedAt); err != nil {
			return err
		}
	}
	return nil
}

func (o *syncOrchestrator) applyServerChange(ctx context.Context, collection string, change models.EntityChange) error {
	localID, found, err := o.resolveLocal(ctx, collection, change.ID, change.LocalID)
	if err != nil {
		return err
	}

	if change.Deleted {
		if !found {
			return nil
		}
		return o.entities.DeleteEntity(ctx, collection, localID)
	}

	if !found {
		if change.ID == nil {
			logger.FromContextOr(ctx, o.logger).Warn().
				Str("local_id", change.LocalID).
				Msg("server change without id for an unknown entity, skipped")
			return nil
		}
		localID = o.ids.Generate()
	}

	updatedAt := o.now()
	if change.UpdatedAt != nil {
		updatedAt = *change.UpdatedAt
	}
	return o.entities.UpsertRemote(ctx, models.RawEntity{
		Collection: collection,
		LocalID:    localID,
		ServerID:   change.ID,
		Payload:    change.Payload,
		UpdatedAt:  updatedAt,
	})
}

func (o *syncOrchestrator) applyAcknowledgement(ctx context.Context, collection string, batch *syncBatch, ref models.ChangeRef) error {
	op, ok := batch.resolve(ref)
	if !ok {
		logger.FromContextOr(ctx, o.logger).Warn().
			Any("ref", ref).
			Msg("acknowledgement for a change that was not submitted, skipped")
		return nil
	}

	if op.Kind == models.OperationCreate {
		e, err := o.entities.GetEntity(ctx, collection, op.LocalID)
		if errors.Is(err, store.ErrEntityNotFound) || (err == nil && e.Deleted) {
			// Deleted while the create was in flight; the tombstone's
			// queued delete must survive this acknowledgement.
			return nil
		}
		if err != nil {
			return err
		}
	}

	serverID := ref.ID
	if serverID == nil {
		serverID = op.ServerID
	}
	return o.pending.MarkSynced(ctx, collection, op.LocalID, serverID, op.Revision)
}

// tombstoneDeletedCreate handles an acknowledged create whose entity was
// deleted locally while the batch was in flight. The server now holds the
// entity, so a hidden tombstone carrying the assigned id is kept and a delete
// is queued for it.
func (o *syncOrchestrator) tombstoneDeletedCreate(ctx context.Context, collection string, batch *syncBatch, ref models.ChangeRef) error {
	op, ok := batch.resolve(ref)
	if !ok || op.Kind != models.OperationCreate || ref.ID == nil {
		return nil
	}

	_, err := o.entities.GetEntity(ctx, collection, op.LocalID)
	if !errors.Is(err, store.ErrEntityNotFound) {
		return err
	}

	logger.FromContextOr(ctx, o.logger).Debug().
		Str("local_id", op.LocalID).
		Int64("server_id", *ref.ID).
		Msg("created entity was deleted in flight, queueing server delete")

	if err = o.entities.SaveLocal(ctx, models.RawEntity{
		Collection: collection,
		LocalID:    op.LocalID,
		ServerID:   ref.ID,
		Payload:    op.Payload,
		Deleted:    true,
		UpdatedAt:  o.now(),
	}); err != nil {
		return err
	}
	return o.pending.Enqueue(ctx, collection, op.LocalID, models.OperationDelete)
}

// applyConflict installs the server's resolution over the local copy and
// flags the entity for review so the overridden edit is not lost silently.
func (o *syncOrchestrator) applyConflict(ctx context.Context, collection string, batch *syncBatch, conflict models.ConflictResolution) error {
	ref := conflict.Ref()
	serverID := conflict.ID

	var (
		localID  string
		revision int64
	)
	if op, ok := batch.resolve(ref); ok {
		localID = op.LocalID
		revision = op.Revision
		if serverID == nil {
			serverID = op.ServerID
		}
	} else {
		id, found, err := o.resolveLocal(ctx, collection, conflict.ID, conflict.LocalID)
		if err != nil {
			return err
		}
		if !found && conflict.ID == nil {
			logger.FromContextOr(ctx, o.logger).Warn().
				Str("local_id", conflict.LocalID).
				Msg("conflict for an unknown entity without id, skipped")
			return nil
		}
		localID = id
		if !found {
			localID = o.ids.Generate()
		}
	}

	if isNullPayload(conflict.Resolution) {
		return o.entities.DeleteEntity(ctx, collection, localID)
	}

	reason := fmt.Sprintf("%s: %s", app.MsgConflictReview, conflict.ConflictType)
	err := o.pending.Discard(ctx, collection, localID, revision, reason)
	if errors.Is(err, store.ErrOperationSuperseded) {
		// The newer local edit stays queued and wins the next round; it
		// only needs the server id.
		return o.pending.MarkSynced(ctx, collection, localID, serverID, revision)
	}
	if err != nil {
		return err
	}
	if err := o.entities.UpsertRemote(ctx, models.RawEntity{
		Collection: collection,
		LocalID:    localID,
		ServerID:   serverID,
		Payload:    conflict.Resolution,
		UpdatedAt:  o.now(),
	}); err != nil {
		return err
	}
	return o.entities.SetReview(ctx, collection, localID, true, reason)
}

// applyFailure keeps a transiently rejected change queued with backoff and
// discards a permanently rejected one, flagging its entity for review.
func (o *syncOrchestrator) applyFailure(ctx context.Context, collection string, batch *syncBatch, failed models.FailedChange, attemptedAt time.Time) error {
	log := logger.FromContextOr(ctx, o.logger)

	op, ok := batch.resolve(failed.Ref())
	if !ok {
		log.Warn().Any("ref", failed.Ref()).Msg("failure for a change that was not submitted, skipped")
		return nil
	}

	if transientChangeCode(failed.Code) {
		if delay, ok := o.opts.Backoff.Delay(op.Attempts + 1); ok {
			log.Debug().
				Str("local_id", op.LocalID).
				Int("code", failed.Code).
				Dur("retry_in", delay).
				Msg("change rejected transiently, will retry")
			return o.pending.MarkFailed(ctx, collection, op.LocalID, op.Revision, attemptedAt, o.now().Add(delay), failed.Reason)
		}

		log.Warn().Str("local_id", op.LocalID).Int("attempts", op.Attempts+1).Msg("retry budget exhausted, discarding change")
		reason := fmt.Sprintf("%s (%d): %s, %s", app.MsgChangeRejected, failed.Code, failed.Reason, app.MsgRetriesExhausted)
		return o.discard(ctx, collection, op, reason)
	}

	log.Warn().Str("local_id", op.LocalID).Int("code", failed.Code).Str("reason", failed.Reason).Msg("change rejected permanently")
	reason := fmt.Sprintf("%s (%d): %s", app.MsgChangeRejected, failed.Code, failed.Reason)
	return o.discard(ctx, collection, op, reason)
}

// discard drops a rejected operation. A newer revision queued meanwhile is
// kept and will be sent on the next round.
func (o *syncOrchestrator) discard(ctx context.Context, collection string, op models.PendingOperation, reason string) error {
	err := o.pending.Discard(ctx, collection, op.LocalID, op.Revision, reason)
	if errors.Is(err, store.ErrOperationSuperseded) {
		logger.FromContextOr(ctx, o.logger).Debug().
			Str("local_id", op.LocalID).
			Int64("revision", op.Revision).
			Msg("rejected revision superseded by a newer local edit")
		return nil
	}
	return err
}

// resolveLocal maps a server identity onto a local entity: by server id
// first, then by local id.
func (o *syncOrchestrator) resolveLocal(ctx context.Context, collection string, serverID *int64, localID string) (string, bool, error) {
	if serverID != nil {
		e, err := o.entities.FindByServerID(ctx, collection, *serverID)
		if err == nil {
			return e.LocalID, true, nil
		}
		if !errors.Is(err, store.ErrEntityNotFound) {
			return "", false, err
		}
	}

	if localID != "" {
		e, err := o.entities.GetEntity(ctx, collection, localID)
		if err == nil {
			return e.LocalID, true, nil
		}
		if !errors.Is(err, store.ErrEntityNotFound) {
			return "", false, err
		}
	}
	return "", false, nil
}

func (o *syncOrchestrator) begin() {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	o.generation++
	if o.revert != nil {
		o.revert.Stop()
		o.revert = nil
	}
	o.state.Publish(models.SyncState{Phase: models.SyncSyncing, At: o.now()})
}

func (o *syncOrchestrator) progress(percent int, collection string) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	o.state.Publish(models.SyncState{
		Phase:      models.SyncSyncing,
		Progress:   percent,
		Collection: collection,
		At:         o.now(),
	})
}

// finish publishes the terminal state and schedules the revert to Idle. A
// newer cycle bumps the generation, which cancels a stale revert.
func (o *syncOrchestrator) finish(phase models.SyncPhase, message string) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	o.generation++
	generation := o.generation

	st := models.SyncState{Phase: phase, Message: message, LastError: message, At: o.now()}
	if phase == models.SyncCompleted {
		st.Progress = 100
	}
	o.state.Publish(st)

	o.revert = time.AfterFunc(o.opts.StateWindow, func() {
		o.revertToIdle(generation)
	})
}

func (o *syncOrchestrator) revertToIdle(generation uint64) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	if o.generation != generation {
		return
	}
	o.revert = nil
	o.state.Publish(models.SyncState{
		Phase:     models.SyncIdle,
		LastError: o.state.Value().LastError,
		At:        o.now(),
	})
}

func localStoreError(collection string, err error) error {
	return &SyncError{Kind: SyncLocalStore, Collection: collection, Message: app.MsgLocalStoreFailed, Err: err}
}

func isNullPayload(p []byte) bool {
	p = bytes.TrimSpace(p)
	return len(p) == 0 || bytes.Equal(p, []byte("null"))
}

// syncBatch is the set of pending operations submitted in one call, indexed
// for matching the server's references back to them.
type syncBatch struct {
	ops        []models.PendingOperation
	byLocalID  map[string]int
	byServerID map[int64]int
	heldBack   int
}

func newSyncBatch(pending []models.PendingOperation, now time.Time) *syncBatch {
	b := &syncBatch{
		byLocalID:  make(map[string]int, len(pending)),
		byServerID: make(map[int64]int),
	}
	for _, op := range pending {
		if !op.Eligible(now) {
			b.heldBack++
			continue
		}
		b.byLocalID[op.LocalID] = len(b.ops)
		if op.ServerID != nil {
			b.byServerID[*op.ServerID] = len(b.ops)
		}
		b.ops = append(b.ops, op)
	}
	return b
}

func (b *syncBatch) request(cursor int64) models.SyncRequest {
	changes := make([]models.EntityChange, 0, len(b.ops))
	for _, op := range b.ops {
		change := models.EntityChange{
			ID:        op.ServerID,
			LocalID:   op.LocalID,
			Operation: op.Kind,
		}
		if op.Kind == models.OperationDelete {
			change.Deleted = true
		} else {
			change.Payload = slices.Clone(op.Payload)
		}
		changes = append(changes, change)
	}
	return models.SyncRequest{LastSyncTimestamp: cursor, ClientChanges: changes}
}

func (b *syncBatch) resolve(ref models.ChangeRef) (models.PendingOperation, bool) {
	if ref.LocalID != "" {
		if i, ok := b.byLocalID[ref.LocalID]; ok {
			return b.ops[i], true
		}
	}
	if ref.ID != nil {
		if i, ok := b.byServerID[*ref.ID]; ok {
			return b.ops[i], true
		}
	}
	return models.PendingOperation{}, false
}
