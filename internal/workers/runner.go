// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
)

// runner owns the lifecycle of one background goroutine.
type runner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// start stops any previous goroutine, then runs loop until ctx is cancelled
// or stop is called.
func (r *runner) start(ctx context.Context, loop func(ctx context.Context)) {
	r.stop()

	r.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		loop(runCtx)
	}()
}

// stop cancels the goroutine and blocks until it has exited. It is a no-op
// when nothing runs.
func (r *runner) stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}
