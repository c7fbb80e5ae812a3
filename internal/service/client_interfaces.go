package service

import (
	"context"
	"time"

	"github.com/devninja1/kiosk-app/models"
)

// ConnectivityMonitor reports whether the remote API is reachable.
// *connectivity.Monitor satisfies it.
type ConnectivityMonitor interface {
	// IsOnline subscribes to reachability changes. The current state is
	// delivered first; the returned func releases the subscription.
	IsOnline() (<-chan bool, func())

	// IsOnlineNow returns the last known reachability without blocking.
	IsOnlineNow() bool

	// CheckNow probes the API immediately and returns the result.
	CheckNow(ctx context.Context) bool
}

// IDGenerator produces idempotency keys for queued requests.
type IDGenerator interface {
	Generate() string
}

// CacheRefresher is implemented by domain services that mirror a record
// collection in memory. The sync engine calls it after writing to that
// collection behind the service's back.
type CacheRefresher interface {
	// Collection is the record collection mirrored by the cache.
	Collection() string

	// Reload replaces the in-memory cache with the durable collection.
	Reload(ctx context.Context) error

	// Refresh pulls the collection from the remote API into the durable
	// store and reloads the cache.
	Refresh(ctx context.Context) error
}

// SyncEngine owns the pending and failed request collections and replays
// deferred mutations against the remote API.
type SyncEngine interface {
	// AddToQueue executes req immediately when the API is reachable. When
	// the attempt fails, or the API is unreachable, req is persisted to the
	// pending collection instead. An error is returned only when the request
	// is invalid or could not be persisted.
	AddToQueue(ctx context.Context, req models.QueuedRequest) error

	// ProcessQueue replays the pending collection in insertion order, one
	// request at a time. A call made while a run is active only flags a
	// follow-up run and returns.
	ProcessQueue(ctx context.Context)

	// IsOnline is the reachability stream of the connectivity monitor.
	IsOnline() (<-chan bool, func())

	// PendingRequests streams the pending collection after every change.
	PendingRequests() (<-chan []models.QueuedRequest, func())

	// FailedRequests streams the failed collection after every change.
	FailedRequests() (<-chan []models.FailedRequest, func())

	// PendingRequestCount streams the size of the pending collection.
	PendingRequestCount() (<-chan int, func())

	// RetryFailedRequest removes item from the failed collection and hands
	// it to AddToQueue as a fresh request.
	RetryFailedRequest(ctx context.Context, item models.FailedRequest) error

	// RetryAllFailedRequests moves every failed request back to the pending
	// collection and processes the queue when the API is reachable.
	RetryAllFailedRequests(ctx context.Context) error

	// DeleteFailedRequest discards one failed request permanently.
	DeleteFailedRequest(ctx context.Context, id int64) error

	// ResolveStaleConflict handles a 404 received while mutating the
	// resource at rawURL: the local copy is deleted and the user warned.
	ResolveStaleConflict(ctx context.Context, rawURL string)

	// AmendPendingCreation rewrites the payload of the queued creation of
	// the placeholder tempID in collection. It reports whether such a
	// request was found. A creation amended while a run is sending it is
	// followed by an update of the created record.
	AmendPendingCreation(ctx context.Context, collection string, tempID int64, payload []byte) (bool, error)

	// CancelPendingCreation drops the queued creation of the placeholder
	// tempID in collection. It reports whether such a request was found.
	CancelPendingCreation(ctx context.Context, collection string, tempID int64) (bool, error)

	// PromotedID returns the server id that replaced the placeholder tempID,
	// if the engine promoted it during this process lifetime.
	PromotedID(tempID int64) (int64, bool)

	// RegisterCache subscribes c to writes the engine makes to its
	// collection. The returned func unregisters it.
	RegisterCache(c CacheRefresher) func()

	// Start loads the collection views and processes the queue whenever the
	// API becomes reachable, until ctx is cancelled or Close is called.
	Start(ctx context.Context)

	// Close stops the reachability subscription started by Start.
	Close()
}

// RecordService mirrors one record collection in memory and routes its
// mutations online or through the sync engine.
type RecordService[T any] interface {
	// List streams the cached collection. The returned func releases the
	// subscription.
	List() (<-chan []T, func())

	// All returns a snapshot of the cached collection.
	All() []T

	// Get returns the cached record with the given id.
	Get(ctx context.Context, id int64) (T, error)

	// Create stores a new record. When the API is unreachable the record is
	// kept under a temporary id until its queued creation succeeds.
	Create(ctx context.Context, record T) (T, error)

	// Update stores the new state of record locally at once and pushes it
	// to the API, or queues it.
	Update(ctx context.Context, record T) (T, error)

	// Delete removes the record locally at once and deletes it remotely, or
	// queues the deletion.
	Delete(ctx context.Context, id int64) error

	// Refresh pulls the collection from the API.
	Refresh(ctx context.Context) error

	// Close releases the reachability subscription.
	Close()
}

// CustomerService manages the customers collection.
type CustomerService interface {
	RecordService[models.Customer]
}

// ProductService manages the products collection.
type ProductService interface {
	RecordService[models.Product]
}

// SaleService manages the sales collection, which is read page by page.
type SaleService interface {
	RecordService[models.Sale]

	// FetchPage returns one page of sales ordered by sale date and id, both
	// descending. Pages come from the API when it is reachable and from the
	// local collection otherwise.
	FetchPage(ctx context.Context, req models.PageRequest) (models.Page[models.Sale], error)
}

// ClientSyncJob defines the contract for a background worker that
// periodically processes the pending queue.
type ClientSyncJob interface {
	// Start launches the background goroutine. It processes the queue every
	// interval, defaulting to 5 minutes if interval is zero or negative. Any
	// previously running job is stopped before the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}
