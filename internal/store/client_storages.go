package store

import (
	"context"
	"fmt"

	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/logger"
)

// ClientStorages groups the durable collections of the kiosk into a single
// value that can be passed around the service layer.
type ClientStorages struct {
	// Queue is the pending collection (sync-queue).
	Queue QueueRepository
	// FailedQueue is the failed collection (failed-sync-queue).
	FailedQueue FailedQueueRepository
	// Records holds the customers, sales, products and purchases
	// collections.
	Records RecordRepository

	db *DB
}

// NewClientStorages initialises the client storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs the repositories over the shared connection.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ClientStorages{
		Queue:       NewQueueRepository(db, logger),
		FailedQueue: NewFailedQueueRepository(db, logger),
		Records:     NewRecordRepository(db, logger),
		db:          db,
	}, nil
}

// Close releases the database connection.
func (s *ClientStorages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
