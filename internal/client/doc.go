// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client runtime.
//
// It wires the session manager, the sync orchestrator, the connectivity
// probe and the background triggers into a single process lifecycle that
// runs until SIGINT, SIGTERM or SIGQUIT.
package client
