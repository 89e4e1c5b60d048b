// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package utils provides general-purpose helpers used across the client:
// a replaying broadcast subject for observable state, request body signing,
// resty client construction, unverified JWT claim reading, and local id
// generation.
package utils
