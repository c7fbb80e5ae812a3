// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package config

import (
	"os"
	"time"
)

// StructuredConfig is the top-level configuration container. It is populated
// by merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings.
	App App `envPrefix:"APP_"`

	// Storage holds the local durable store settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds the remote API connection settings.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds the intervals of background loops.
	Workers Workers `envPrefix:"WORKERS_"`

	// Sync holds sync queue policies.
	Sync Sync `envPrefix:"SYNC_"`

	// Server holds the local API settings.
	Server Server `envPrefix:"SERVER_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// APIToken is the bearer token attached to every API request.
	// Env: APP_API_TOKEN
	APIToken string `env:"API_TOKEN"`

	// LogFile is the file the client logger appends to. Empty means stdout.
	// Env: APP_LOG_FILE
	LogFile string `env:"LOG_FILE"`
}

// Storage groups the configuration of the local durable store.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings of the local SQLite database.
type DB struct {
	// DSN is the SQLite database file path (e.g. "data/kiosk.db").
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Adapter holds connection settings of the remote API.
type Adapter struct {
	// HTTPAddress is the API base address (e.g. "https://pos.example.com").
	// A missing scheme defaults to http.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single outbound request (e.g. "10s").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// ProbePath is the read-only resource requested to check reachability.
	// Env: ADAPTER_PROBE_PATH
	ProbePath string `env:"PROBE_PATH"`
}

// Workers holds configuration of background loops.
type Workers struct {
	// ProbeInterval is how often reachability is re-checked while the
	// network interface reports available.
	// Env: WORKERS_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`

	// SyncInterval is how often the pending queue is processed regardless
	// of connectivity transitions.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// Sync holds sync queue policies.
type Sync struct {
	// FailedQueueLimit caps the failed collection; the oldest entries are
	// evicted first.
	// Env: SYNC_FAILED_QUEUE_LIMIT
	FailedQueueLimit int `env:"FAILED_QUEUE_LIMIT"`

	// PageSize is the default page size of paginated reads.
	// Env: SYNC_PAGE_SIZE
	PageSize int `env:"PAGE_SIZE"`
}

// Server holds settings of the local HTTP API consumed by the front-end.
type Server struct {
	// HTTPAddress is the listen address (e.g. "127.0.0.1:8780"). The value
	// "off" disables the local API.
	// Env: SERVER_HTTP_ADDRESS
	HTTPAddress string `env:"HTTP_ADDRESS"`
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources in the following priority order (last source wins
// for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(os.Args[1:]).
		withJSON().
		build()
}
