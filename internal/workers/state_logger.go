// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/models"
)

// SyncStateSource is the observable side of the orchestrator.
type SyncStateSource interface {
	Subscribe() (<-chan models.SyncState, func())
}

// SyncStateLogger writes every phase change of the orchestrator to the log.
// Progress updates inside the Syncing phase are logged at debug level.
type SyncStateLogger struct {
	source SyncStateSource
	logger *logger.Logger
	runner
}

func NewSyncStateLogger(source SyncStateSource, logger *logger.Logger) *SyncStateLogger {
	return &SyncStateLogger{source: source, logger: logger}
}

// Start implements Worker.
func (w *SyncStateLogger) Start(ctx context.Context) {
	states, cancel := w.source.Subscribe()

	w.start(ctx, func(ctx context.Context) {
		defer cancel()

		var last models.SyncPhase = -1
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-states:
				if !ok {
					return
				}
				w.log(st, st.Phase != last)
				last = st.Phase
			}
		}
	})
}

func (w *SyncStateLogger) log(st models.SyncState, phaseChanged bool) {
	switch {
	case st.Phase == models.SyncError:
		w.logger.Warn().Str("phase", st.Phase.String()).Str("error", st.Message).Msg("sync state")
	case phaseChanged:
		w.logger.Info().Str("phase", st.Phase.String()).Str("last_error", st.LastError).Msg("sync state")
	default:
		w.logger.Debug().Str("phase", st.Phase.String()).Int("progress", st.Progress).Str("collection", st.Collection).Msg("sync progress")
	}
}

// Stop implements Worker.
func (w *SyncStateLogger) Stop() {
	w.stop()
}
