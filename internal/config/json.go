// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the on-disk JSON layout of the client config.
type StructuredJSONConfig struct {
	App struct {
		HashKey string `json:"hash_key"`
		LogPath string `json:"log_path"`
	} `json:"app,omitempty"`

	Auth struct {
		Username      string   `json:"username"`
		Password      string   `json:"password"`
		RememberMe    bool     `json:"remember_me"`
		RefreshLeeway Duration `json:"refresh_leeway"`
	} `json:"auth,omitempty"`

	Storage struct {
		DSN         string `json:"dsn"`
		SessionPath string `json:"session_path"`
	} `json:"storage,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Workers struct {
		SyncInterval         Duration `json:"sync_interval"`
		ConnectivityInterval Duration `json:"connectivity_interval"`
	} `json:"workers,omitempty"`

	Sync struct {
		Collections []string `json:"collections"`
		StateWindow Duration `json:"state_window"`
		BackoffBase Duration `json:"backoff_base"`
		BackoffMax  Duration `json:"backoff_max"`
		MaxRetries  int      `json:"max_retries"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	return &StructuredConfig{
		App: App{
			HashKey: jsonCfg.App.HashKey,
			LogPath: jsonCfg.App.LogPath,
		},
		Auth: Auth{
			Username:      jsonCfg.Auth.Username,
			Password:      jsonCfg.Auth.Password,
			RememberMe:    jsonCfg.Auth.RememberMe,
			RefreshLeeway: time.Duration(jsonCfg.Auth.RefreshLeeway),
		},
		Storage: Storage{
			DB:      DB{DSN: jsonCfg.Storage.DSN},
			Session: Session{Path: jsonCfg.Storage.SessionPath},
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Workers: Workers{
			SyncInterval:         time.Duration(jsonCfg.Workers.SyncInterval),
			ConnectivityInterval: time.Duration(jsonCfg.Workers.ConnectivityInterval),
		},
		Sync: Sync{
			Collections: jsonCfg.Sync.Collections,
			StateWindow: time.Duration(jsonCfg.Sync.StateWindow),
			BackoffBase: time.Duration(jsonCfg.Sync.BackoffBase),
			BackoffMax:  time.Duration(jsonCfg.Sync.BackoffMax),
			MaxRetries:  jsonCfg.Sync.MaxRetries,
		},
	}, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s" as well as raw nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
