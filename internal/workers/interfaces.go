// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package workers provides the background workers of the sync client:
// the timer trigger, edge triggers on connectivity and auth status, and the
// sync-state logger. A Workers aggregate starts and stops them together.
package workers

import "context"

// Worker is the interface that must be implemented by any background worker.
// Start launches the worker's goroutine and returns immediately; Stop
// signals it to exit and blocks until it has. Stop must be safe to call on a
// worker that was never started.
//
// Example implementation:
//
//	type MyWorker struct{ cancel context.CancelFunc }
//
//	func (w *MyWorker) Start(ctx context.Context) {
//	    ctx, w.cancel = context.WithCancel(ctx)
//	    go w.loop(ctx)
//	}
type Worker interface {
	Start(ctx context.Context)
	Stop()
}
