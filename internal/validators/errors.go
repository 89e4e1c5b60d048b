// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyTitle     = errors.New("task title is required")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidRef     = errors.New("referenced id must be positive")
	ErrEmptyAssetName = errors.New("asset name is required")
	ErrEmptyAssetTag  = errors.New("asset tag is required")
	ErrFieldTooLong   = errors.New("field is too long")
)
