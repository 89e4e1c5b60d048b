// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/service"
	"github.com/MKhiriev/go-field-sync/models"
)

const defaultSyncInterval = 5 * time.Minute

// PeriodicSyncWorker requests a sync cycle on a fixed interval.
type PeriodicSyncWorker struct {
	requester service.SyncRequester
	interval  time.Duration
	logger    *logger.Logger
	runner
}

// NewPeriodicSyncWorker creates an idle worker. If interval is zero or
// negative it defaults to 5 minutes.
func NewPeriodicSyncWorker(requester service.SyncRequester, interval time.Duration, logger *logger.Logger) *PeriodicSyncWorker {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &PeriodicSyncWorker{requester: requester, interval: interval, logger: logger}
}

// Start implements Worker. The first request is sent after one interval.
func (w *PeriodicSyncWorker) Start(ctx context.Context) {
	w.logger.Info().Str("func", "PeriodicSyncWorker.Start").Dur("interval", w.interval).Msg("periodic sync started")

	w.start(ctx, func(ctx context.Context) {
		t := time.NewTicker(w.interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.requester.RequestSync(models.TriggerTimer)
			}
		}
	})
}

// Stop implements Worker.
func (w *PeriodicSyncWorker) Stop() {
	w.stop()
}
