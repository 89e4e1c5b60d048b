// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/store"
	"github.com/MKhiriev/go-field-sync/internal/validators"
	"github.com/MKhiriev/go-field-sync/models"
)

type entityService struct {
	entities    store.LocalEntityRepository
	pending     store.PendingOperationStore
	ids         IDGenerator
	sync        SyncRequester
	collections []string
	validator   validators.Validator
	now         func() time.Time
	logger      *logger.Logger
}

// NewEntityService creates the local-first CRUD service. sync may be nil, in
// which case mutations are only queued.
func NewEntityService(
	entities store.LocalEntityRepository,
	pending store.PendingOperationStore,
	ids IDGenerator,
	sync SyncRequester,
	collections []string,
	logger *logger.Logger,
) EntityService {
	return &entityService{
		entities:    entities,
		pending:     pending,
		ids:         ids,
		sync:        sync,
		collections: collections,
		validator:   validators.NewPayloadValidator(),
		now:         time.Now,
		logger:      logger,
	}
}

func (s *entityService) Create(ctx context.Context, collection string, payload json.RawMessage) (models.RawEntity, error) {
	if err := s.validate(ctx, collection, payload); err != nil {
		return models.RawEntity{}, err
	}

	entity := models.RawEntity{
		Collection: collection,
		LocalID:    s.ids.Generate(),
		Payload:    payload,
		Status:     models.StatusPending,
		UpdatedAt:  s.now(),
	}
	if err := s.entities.SaveLocal(ctx, entity); err != nil {
		return models.RawEntity{}, fmt.Errorf("save new %s entity: %w", collection, err)
	}
	if err := s.pending.Enqueue(ctx, collection, entity.LocalID, models.OperationCreate); err != nil {
		return models.RawEntity{}, err
	}

	s.log(ctx, "entityService.Create").Debug().Str("collection", collection).Str("local_id", entity.LocalID).Msg("entity created locally")
	s.requestSync()
	return s.entities.GetEntity(ctx, collection, entity.LocalID)
}

func (s *entityService) Update(ctx context.Context, collection, localID string, payload json.RawMessage) (models.RawEntity, error) {
	if err := s.validate(ctx, collection, payload); err != nil {
		return models.RawEntity{}, err
	}

	entity, err := s.Get(ctx, collection, localID)
	if err != nil {
		return models.RawEntity{}, err
	}

	entity.Payload = payload
	entity.UpdatedAt = s.now()
	if err = s.entities.SaveLocal(ctx, entity); err != nil {
		return models.RawEntity{}, fmt.Errorf("save %s/%s: %w", collection, localID, err)
	}
	if err = s.pending.Enqueue(ctx, collection, localID, models.OperationUpdate); err != nil {
		return models.RawEntity{}, err
	}

	s.log(ctx, "entityService.Update").Debug().Str("collection", collection).Str("local_id", localID).Msg("entity updated locally")
	s.requestSync()
	return s.entities.GetEntity(ctx, collection, localID)
}

// Delete removes an entity that never reached the server right away and
// otherwise hides it until the server acknowledges the deletion. If its create
// was already in flight, the orchestrator queues the server delete once the
// create is acknowledged.
func (s *entityService) Delete(ctx context.Context, collection, localID string) error {
	if err := s.validate(ctx, collection, nil); err != nil {
		return err
	}

	entity, err := s.Get(ctx, collection, localID)
	if err != nil {
		return err
	}

	log := s.log(ctx, "entityService.Delete").With().Str("collection", collection).Str("local_id", localID).Logger()

	if entity.ServerID == nil {
		if err = s.entities.DeleteEntity(ctx, collection, localID); err != nil {
			return err
		}
		log.Debug().Msg("unsynced entity deleted locally")
		return nil
	}

	entity.Deleted = true
	entity.UpdatedAt = s.now()
	if err = s.entities.SaveLocal(ctx, entity); err != nil {
		return fmt.Errorf("mark %s/%s deleted: %w", collection, localID, err)
	}
	if err = s.pending.Enqueue(ctx, collection, localID, models.OperationDelete); err != nil {
		return err
	}

	log.Debug().Msg("entity deletion queued")
	s.requestSync()
	return nil
}

func (s *entityService) Get(ctx context.Context, collection, localID string) (models.RawEntity, error) {
	entity, err := s.entities.GetEntity(ctx, collection, localID)
	if err != nil {
		return models.RawEntity{}, err
	}
	if entity.Deleted {
		return models.RawEntity{}, store.ErrEntityNotFound
	}
	return entity, nil
}

func (s *entityService) List(ctx context.Context, collection string) ([]models.RawEntity, error) {
	if err := s.validate(ctx, collection, nil); err != nil {
		return nil, err
	}
	return s.entities.ListEntities(ctx, collection)
}

func (s *entityService) NeedsReview(ctx context.Context, collection string) ([]models.RawEntity, error) {
	all, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(e models.RawEntity) bool { return !e.NeedsReview }), nil
}

func (s *entityService) ClearReview(ctx context.Context, collection, localID string) error {
	if err := s.entities.SetReview(ctx, collection, localID, false, ""); err != nil {
		if errors.Is(err, store.ErrEntityNotFound) {
			return err
		}
		return fmt.Errorf("clear review %s/%s: %w", collection, localID, err)
	}
	return nil
}

func (s *entityService) validate(ctx context.Context, collection string, payload json.RawMessage) error {
	if !slices.Contains(s.collections, collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if payload == nil {
		return nil
	}
	if !json.Valid(payload) {
		return ErrInvalidPayload
	}

	var typed any
	switch collection {
	case models.CollectionTasks:
		typed = new(models.Task)
	case models.CollectionAssets:
		typed = new(models.Asset)
	default:
		return nil
	}
	if err := json.Unmarshal(payload, typed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := s.validator.Validate(ctx, typed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

func (s *entityService) requestSync() {
	if s.sync != nil {
		s.sync.RequestSync(models.TriggerLocalChange)
	}
}

func (s *entityService) log(ctx context.Context, fn string) *logger.Logger {
	l := logger.FromContextOr(ctx, s.logger)
	return &logger.Logger{Logger: l.With().Str("func", fn).Logger()}
}

// CreateEntity stores a typed value in collection through svc.
func CreateEntity[T any](ctx context.Context, svc EntityService, collection string, value T) (models.SyncEntity[T], error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return models.SyncEntity[T]{}, fmt.Errorf("encode %s payload: %w", collection, err)
	}

	raw, err := svc.Create(ctx, collection, payload)
	if err != nil {
		return models.SyncEntity[T]{}, err
	}
	return models.DecodeEntity[T](raw)
}

// UpdateEntity replaces the payload of a typed entity through svc.
func UpdateEntity[T any](ctx context.Context, svc EntityService, collection, localID string, value T) (models.SyncEntity[T], error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return models.SyncEntity[T]{}, fmt.Errorf("encode %s payload: %w", collection, err)
	}

	raw, err := svc.Update(ctx, collection, localID, payload)
	if err != nil {
		return models.SyncEntity[T]{}, err
	}
	return models.DecodeEntity[T](raw)
}

// GetEntity loads one typed entity.
func GetEntity[T any](ctx context.Context, svc EntityService, collection, localID string) (models.SyncEntity[T], error) {
	raw, err := svc.Get(ctx, collection, localID)
	if err != nil {
		return models.SyncEntity[T]{}, err
	}
	return models.DecodeEntity[T](raw)
}

// ListEntities loads every visible entity of collection as T.
func ListEntities[T any](ctx context.Context, svc EntityService, collection string) ([]models.SyncEntity[T], error) {
	raws, err := svc.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	out := make([]models.SyncEntity[T], 0, len(raws))
	for _, raw := range raws {
		e, err := models.DecodeEntity[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
