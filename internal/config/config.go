// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// client. It is populated by merging values from environment variables,
// command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
//   - envDefault: value used when the variable is unset.
type StructuredConfig struct {
	// App holds application-level settings such as the request signing key
	// and the log file location.
	App App `envPrefix:"APP_"`

	// Auth holds optional bootstrap credentials and token refresh tuning.
	Auth Auth `envPrefix:"AUTH_"`

	// Storage holds the local database and session file locations.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds the server address and the outbound request timeout.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds intervals of the background trigger workers.
	Workers Workers `envPrefix:"WORKERS_"`

	// Sync holds orchestrator tuning.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// HashKey is the HMAC key used to sign sync request bodies
	// (HashSHA256 header). Empty disables signing.
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// LogPath is the file the client logs to. Empty means a "logs" file
	// next to the executable.
	// Env: APP_LOG_PATH
	LogPath string `env:"LOG_PATH"`
}

// Auth holds authentication settings.
type Auth struct {
	// Username and Password, when both set, are used to log in at startup if
	// no persisted session can be restored.
	// Env: AUTH_USERNAME, AUTH_PASSWORD
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`

	// RememberMe is forwarded to the login endpoint.
	// Env: AUTH_REMEMBER_ME
	RememberMe bool `env:"REMEMBER_ME"`

	// RefreshLeeway makes tokens that expire within this window count as
	// expired, so a request never leaves with a token about to lapse.
	// Env: AUTH_REFRESH_LEEWAY
	RefreshLeeway time.Duration `env:"REFRESH_LEEWAY" envDefault:"30s"`
}

// Storage groups the local persistence settings.
type Storage struct {
	// DB holds the local database settings.
	DB DB `envPrefix:"DB_"`

	// Session holds the session file settings.
	Session Session `envPrefix:"SESSION_"`
}

// DB holds connection settings for the local database.
type DB struct {
	// DSN is the SQLite file path, or "memory" for a volatile in-process
	// store.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN" envDefault:"sync.db"`
}

// Session holds settings of the persisted session file.
type Session struct {
	// Path is the JSON file holding the persisted session.
	// Env: STORAGE_SESSION_PATH
	Path string `env:"PATH" envDefault:"session.json"`
}

// Adapter holds configuration of the server transport.
type Adapter struct {
	// HTTPAddress is the server base URL, with or without scheme
	// (e.g. "https://api.example.com", "localhost:8080").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds every outbound request. A timeout is reported as
	// a transient failure.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
}

// Workers holds configuration for background trigger workers.
type Workers struct {
	// SyncInterval is the period of the timer trigger.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`

	// ConnectivityInterval is how often the health probe checks reachability.
	// Env: WORKERS_CONNECTIVITY_INTERVAL
	ConnectivityInterval time.Duration `env:"CONNECTIVITY_INTERVAL" envDefault:"10s"`
}

// Sync holds orchestrator tuning.
type Sync struct {
	// Collections lists the entity collections to synchronize, in order.
	// Env: SYNC_COLLECTIONS (comma separated)
	Collections []string `env:"COLLECTIONS" envSeparator:"," envDefault:"tasks,assets"`

	// StateWindow is how long Completed/Error stay visible before the state
	// machine reverts to Idle.
	// Env: SYNC_STATE_WINDOW
	StateWindow time.Duration `env:"STATE_WINDOW" envDefault:"3s"`

	// BackoffBase and BackoffMax bound the exponential backoff applied to a
	// pending operation the server rejected with a transient code.
	// Env: SYNC_BACKOFF_BASE, SYNC_BACKOFF_MAX
	BackoffBase time.Duration `env:"BACKOFF_BASE" envDefault:"30s"`
	BackoffMax  time.Duration `env:"BACKOFF_MAX" envDefault:"30m"`

	// MaxRetries is the number of transient rejections after which a change
	// is treated as permanently rejected.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES" envDefault:"8"`
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources in the following priority order (later sources
// override non-zero fields of earlier ones):
//  1. Environment variables (with defaults)
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
