// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// ParseFlags parses the client flags from the process command line.
//
// Flags:
//
//	-s server base URL (e.g. https://api.example.com)
//	-d local database DSN (SQLite file path or "memory")
//	-session session file path
//	-c/-config json file path with configs
//	-u login username
//	-p login password
//	-request-timeout request timeout (e.g., "15s")
//	-sync-interval periodic sync interval (e.g., "5m")
//	-collections comma separated collections to sync
//	-hash-key request signing key
//	-log log file path
func ParseFlags() (*StructuredConfig, error) {
	return parseFlagSet(flag.CommandLine, os.Args[1:])
}

func parseFlagSet(fs *flag.FlagSet, args []string) (*StructuredConfig, error) {
	var (
		serverAddress  string
		databaseDSN    string
		sessionPath    string
		jsonConfigPath string
		username       string
		password       string
		requestTimeout time.Duration
		syncInterval   time.Duration
		collections    string
		hashKey        string
		logPath        string
	)

	fs.StringVar(&serverAddress, "s", "", "Server base URL")
	fs.StringVar(&databaseDSN, "d", "", "Local database DSN")
	fs.StringVar(&sessionPath, "session", "", "Session file path")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&username, "u", "", "Login username")
	fs.StringVar(&password, "p", "", "Login password")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync interval (e.g., 5m)")
	fs.StringVar(&collections, "collections", "", "Comma separated collections to sync")
	fs.StringVar(&hashKey, "hash-key", "", "Request signing key")
	fs.StringVar(&logPath, "log", "", "Log file path")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			HashKey: hashKey,
			LogPath: logPath,
		},
		Auth: Auth{
			Username: username,
			Password: password,
		},
		Storage: Storage{
			DB:      DB{DSN: databaseDSN},
			Session: Session{Path: sessionPath},
		},
		Adapter: Adapter{
			HTTPAddress:    serverAddress,
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{SyncInterval: syncInterval},
		Sync: Sync{
			Collections: splitList(collections),
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
