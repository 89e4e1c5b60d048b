// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run starts the client application and blocks until exit.
	Run() error
}

// ConnectivityProbe reports server reachability as a replaying boolean
// stream and runs as a background worker.
type ConnectivityProbe interface {
	Start(ctx context.Context)
	Stop()
	Subscribe() (<-chan bool, func())
}
