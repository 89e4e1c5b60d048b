// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/service"
	"github.com/MKhiriev/go-field-sync/models"
)

// BoolStream subscribes to a replaying boolean stream such as the
// connectivity signal or the auth status.
type BoolStream func() (<-chan bool, func())

// EdgeTriggerWorker requests a sync cycle every time a boolean stream goes
// from false to true: the network came back, or the user logged in. The
// replayed first value only sets the baseline.
type EdgeTriggerWorker struct {
	name      string
	stream    BoolStream
	requester service.SyncRequester
	trigger   models.SyncTrigger
	logger    *logger.Logger
	runner
}

func NewEdgeTriggerWorker(name string, stream BoolStream, requester service.SyncRequester, trigger models.SyncTrigger, logger *logger.Logger) *EdgeTriggerWorker {
	return &EdgeTriggerWorker{
		name:      name,
		stream:    stream,
		requester: requester,
		trigger:   trigger,
		logger:    logger,
	}
}

// Start implements Worker.
func (w *EdgeTriggerWorker) Start(ctx context.Context) {
	values, cancel := w.stream()

	w.start(ctx, func(ctx context.Context) {
		defer cancel()

		first := true
		var last bool
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-values:
				if !ok {
					return
				}
				if !first && !last && v {
					w.logger.Info().Str("func", "EdgeTriggerWorker.Start").Str("worker", w.name).Msg("became true, requesting sync")
					w.requester.RequestSync(w.trigger)
				}
				first, last = false, v
			}
		}
	})
}

// Stop implements Worker.
func (w *EdgeTriggerWorker) Stop() {
	w.stop()
}
