// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

// validate checks the merged [StructuredConfig] before it is mapped.
// Semantic checks live in [ClientConfig.validate].
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.MaxRetries < 0 {
		return fmt.Errorf("%w: negative max retries", ErrInvalidSyncConfigs)
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || cfg.Storage.SessionPath == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval <= 0 || cfg.Workers.ConnectivityInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if len(cfg.Sync.Collections) == 0 || cfg.Sync.BackoffBase <= 0 || cfg.Sync.BackoffMax < cfg.Sync.BackoffBase {
		return ErrInvalidSyncConfigs
	}

	if (cfg.Auth.Username == "") != (cfg.Auth.Password == "") {
		return ErrInvalidAuthConfigs
	}

	return nil
}
