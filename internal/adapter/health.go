// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/MKhiriev/go-field-sync/internal/logger"
	"github.com/MKhiriev/go-field-sync/internal/utils"
	"github.com/MKhiriev/go-field-sync/models"
)

const defaultProbeInterval = 10 * time.Second

// HealthProbe is the connectivity signal of the client: it polls the server
// health endpoint and publishes reachability as a distinct boolean stream.
// The probe starts offline until the first successful ping.
type HealthProbe struct {
	checker  HealthChecker
	interval time.Duration
	status   *utils.Subject[bool]
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthProbe creates an idle probe. A non-positive interval defaults to
// 10 seconds.
func NewHealthProbe(checker HealthChecker, interval time.Duration, logger *logger.Logger) *HealthProbe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	return &HealthProbe{
		checker:  checker,
		interval: interval,
		status:   utils.NewSubject(false, utils.Distinct[bool]()),
		logger:   logger,
	}
}

// Online reports the last observed reachability.
func (p *HealthProbe) Online() bool {
	return p.status.Value()
}

// Subscribe streams reachability transitions, starting with the current
// value.
func (p *HealthProbe) Subscribe() (<-chan bool, func()) {
	return p.status.Subscribe()
}

// Check pings the server once and publishes the outcome.
func (p *HealthProbe) Check(ctx context.Context) bool {
	online := models.Match(p.checker.Ping(ctx),
		func(struct{}) bool { return true },
		func(f models.Failure[struct{}]) bool {
			p.logger.Debug().
				Str("func", "HealthProbe.Check").
				Int("code", f.Code).
				Msg(f.Message)
			return false
		},
		func() bool { return false },
	)
	if ctx.Err() != nil {
		// Shutting down, not a connectivity change.
		return p.Online()
	}

	if p.status.Publish(online) {
		p.logger.Info().
			Str("func", "HealthProbe.Check").
			Bool("online", online).
			Msg("connectivity changed")
	}
	return online
}

// Start probes immediately and then on every interval until ctx is cancelled
// or Stop is called. A running probe is restarted.
func (p *HealthProbe) Start(ctx context.Context) {
	p.Stop()

	p.mu.Lock()
	probeCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()

		p.Check(probeCtx)
		for {
			select {
			case <-probeCtx.Done():
				return
			case <-t.C:
				p.Check(probeCtx)
			}
		}
	}()
}

// Stop cancels the polling goroutine and waits for it to exit. Safe to call
// when the probe is not running.
func (p *HealthProbe) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}
