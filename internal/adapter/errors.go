// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import "errors"

var (
	// ErrInvalidAddress is returned by [NewHTTPServerAdapter] when the
	// configured server address cannot be turned into a base URL.
	ErrInvalidAddress = errors.New("invalid server address")
)
