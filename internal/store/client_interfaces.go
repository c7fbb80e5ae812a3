package store

import (
	"context"
	"encoding/json"

	"github.com/devninja1/kiosk-app/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// QueueRepository is the pending collection (sync-queue). Items are returned
// in insertion order.
type QueueRepository interface {
	GetAll(ctx context.Context) ([]models.QueuedRequest, error)
	// GetByKey returns [ErrQueueItemNotFound] when id is absent.
	GetByKey(ctx context.Context, id int64) (models.QueuedRequest, error)
	// Add stores req and returns it with its assigned id. A non-zero id is
	// kept; [ErrDuplicateKey] is returned when it is already taken.
	Add(ctx context.Context, req models.QueuedRequest) (models.QueuedRequest, error)
	// Update returns [ErrQueueItemNotFound] when req.ID is absent.
	Update(ctx context.Context, req models.QueuedRequest) (models.QueuedRequest, error)
	BulkAdd(ctx context.Context, reqs []models.QueuedRequest) ([]models.QueuedRequest, error)
	// Delete is a no-op for an absent id.
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// FailedQueueRepository is the failed collection (failed-sync-queue).
type FailedQueueRepository interface {
	GetAll(ctx context.Context) ([]models.FailedRequest, error)
	GetByKey(ctx context.Context, id int64) (models.FailedRequest, error)
	Add(ctx context.Context, req models.FailedRequest) (models.FailedRequest, error)
	Update(ctx context.Context, req models.FailedRequest) (models.FailedRequest, error)
	BulkAdd(ctx context.Context, reqs []models.FailedRequest) ([]models.FailedRequest, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	// TrimOldest deletes the oldest items so that at most keep remain and
	// reports how many were deleted.
	TrimOldest(ctx context.Context, keep int) (int64, error)
}

// RecordRepository holds the record collections (customers, sales, products,
// purchases) as JSON documents keyed by (collection, id).
type RecordRepository interface {
	GetAll(ctx context.Context, collection string) ([]models.StoredRecord, error)
	// GetByKey returns [ErrRecordNotFound] when the key is absent.
	GetByKey(ctx context.Context, collection string, id int64) (json.RawMessage, error)
	// Add returns [ErrDuplicateKey] when the key is already present.
	Add(ctx context.Context, collection string, record models.StoredRecord) error
	// Update returns [ErrRecordNotFound] when the key is absent.
	Update(ctx context.Context, collection string, record models.StoredRecord) error
	// Put inserts or replaces the record.
	Put(ctx context.Context, collection string, record models.StoredRecord) error
	BulkAdd(ctx context.Context, collection string, records []models.StoredRecord) error
	// Delete is a no-op for an absent key.
	Delete(ctx context.Context, collection string, id int64) error
	Clear(ctx context.Context, collection string) error
	Count(ctx context.Context, collection string) (int, error)
	// ReplaceAll swaps the whole collection for records in one transaction.
	ReplaceAll(ctx context.Context, collection string, records []models.StoredRecord) error
}
