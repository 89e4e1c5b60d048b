// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncPhase is the phase of the orchestrator state machine:
// Idle -> Syncing -> Completed | Error -> Idle.
type SyncPhase int

const (
	SyncIdle SyncPhase = iota
	SyncSyncing
	SyncCompleted
	SyncError
)

func (p SyncPhase) String() string {
	switch p {
	case SyncIdle:
		return "idle"
	case SyncSyncing:
		return "syncing"
	case SyncCompleted:
		return "completed"
	case SyncError:
		return "error"
	}
	return "unknown"
}

// SyncState is the value published to sync-state observers.
type SyncState struct {
	Phase SyncPhase
	// Progress is 0..100 while Syncing, 100 when Completed.
	Progress int
	// Collection is the collection being processed while Syncing.
	Collection string
	// Message is the error text while in the Error phase.
	Message string
	// LastError survives the revert to Idle and is cleared when the next
	// cycle starts.
	LastError string
	At        time.Time
}

// SyncTrigger names the reason a cycle was requested.
type SyncTrigger string

const (
	TriggerConnectivity SyncTrigger = "connectivity"
	TriggerUser         SyncTrigger = "user"
	TriggerTimer        SyncTrigger = "timer"
	TriggerLocalChange  SyncTrigger = "local_change"
)
