// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package config

import "strings"

// validate checks the merged [StructuredConfig]. Values are optional at this
// level; required settings are enforced on [ClientConfig].
func (cfg *StructuredConfig) validate() error {
	if cfg.Sync.FailedQueueLimit < 0 || cfg.Sync.PageSize < 0 {
		return ErrInvalidSyncConfigs
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, ":memory:") {
		return ErrInvalidStorageConfigs
	}

	if strings.TrimSpace(cfg.Adapter.HTTPAddress) == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if !strings.HasPrefix(cfg.Adapter.ProbePath, "/") {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.ProbeInterval <= 0 || cfg.Workers.SyncInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Sync.FailedQueueLimit <= 0 || cfg.Sync.PageSize <= 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}
