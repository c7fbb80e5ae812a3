package config

import "errors"

// Validation errors returned when required configuration groups are
// incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates invalid remote API settings
	// (for example, missing address or non-positive request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid local storage settings
	// (for example, an in-memory DSN that would lose the queue on exit).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidWorkerConfigs indicates invalid background loop intervals.
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
	// ErrInvalidSyncConfigs indicates invalid sync queue policies.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
