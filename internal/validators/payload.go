// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/MKhiriev/go-field-sync/models"
)

// Field name constants used to restrict validation to a subset of fields.
const (
	// FieldTitle targets the task title.
	FieldTitle = "title"

	// FieldTaskStatus targets the task workflow status.
	FieldTaskStatus = "task_status"

	// FieldRefs targets the assignee and asset references of a task.
	FieldRefs = "refs"

	// FieldName targets the asset name.
	FieldName = "name"

	// FieldTag targets the asset inventory tag.
	FieldTag = "tag"

	// FieldAssetStatus targets the asset status.
	FieldAssetStatus = "asset_status"
)

const maxTextLen = 256

var (
	// allowedTaskStatuses lists the accepted task statuses. Empty means
	// the server default.
	allowedTaskStatuses = []string{"", "open", "in_progress", "done", "cancelled"}

	allowedAssetStatuses = []string{"", "active", "maintenance", "retired"}
)

// PayloadValidator implements Validator for the entity payloads the client
// edits offline: models.Task and models.Asset, by value or pointer.
type PayloadValidator struct {
}

func NewPayloadValidator() Validator {
	return &PayloadValidator{}
}

// Validate dispatches on the dynamic type of obj. Returns ErrUnsupportedType
// for anything that is not a task or an asset.
func (v *PayloadValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Task:
		return v.validateTask(ctx, value, fields...)
	case *models.Task:
		return v.validateTask(ctx, *value, fields...)

	case models.Asset:
		return v.validateAsset(ctx, value, fields...)
	case *models.Asset:
		return v.validateAsset(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *PayloadValidator) validateTask(_ context.Context, task models.Task, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldTitle, FieldTaskStatus, FieldRefs}
	}

	for _, f := range fields {
		switch f {
		case FieldTitle:
			if task.Title == "" {
				return ErrEmptyTitle
			}
			if tooLong(task.Title) {
				return ErrFieldTooLong
			}
		case FieldTaskStatus:
			if !slices.Contains(allowedTaskStatuses, task.Status) {
				return ErrInvalidStatus
			}
		case FieldRefs:
			if (task.AssigneeID != nil && *task.AssigneeID <= 0) || (task.AssetID != nil && *task.AssetID <= 0) {
				return ErrInvalidRef
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *PayloadValidator) validateAsset(_ context.Context, asset models.Asset, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldName, FieldTag, FieldAssetStatus}
	}

	for _, f := range fields {
		switch f {
		case FieldName:
			if asset.Name == "" {
				return ErrEmptyAssetName
			}
			if tooLong(asset.Name) {
				return ErrFieldTooLong
			}
		case FieldTag:
			if asset.Tag == "" {
				return ErrEmptyAssetTag
			}
			if tooLong(asset.Tag) {
				return ErrFieldTooLong
			}
		case FieldAssetStatus:
			if !slices.Contains(allowedAssetStatuses, asset.Status) {
				return ErrInvalidStatus
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func tooLong(s string) bool {
	return utf8.RuneCountInString(s) > maxTextLen
}
