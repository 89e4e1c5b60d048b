// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffPolicy computes how long a change rejected with a transient code
// waits before it is submitted again.
type BackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
	// MaxRetries is the number of retries before the change counts as
	// permanently failed. 0 means no limit.
	MaxRetries int
}

// Delay returns the wait before retry number attempt (1-based). ok is false
// once the retry budget is exhausted.
func (p BackoffPolicy) Delay(attempt int) (delay time.Duration, ok bool) {
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxRetries > 0 && attempt > p.MaxRetries {
		return 0, false
	}
	if p.Base <= 0 {
		return 0, true
	}

	b := retry.NewExponential(p.Base)
	if p.Max > 0 {
		b = retry.WithCappedDuration(p.Max, b)
	}

	for range attempt {
		delay, _ = b.Next()
		if p.Max > 0 && delay >= p.Max {
			break
		}
	}
	return delay, true
}
