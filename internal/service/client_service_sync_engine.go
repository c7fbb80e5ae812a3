package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/notify"
	"github.com/devninja1/kiosk-app/internal/observable"
	"github.com/devninja1/kiosk-app/internal/store"
	"github.com/devninja1/kiosk-app/internal/utils"
	"github.com/devninja1/kiosk-app/models"
)

// runState is the queue processing state. Only the engine transitions it.
type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateRunningRerunPending
)

const (
	noticeQueued   = "Change saved offline. It will sync when the connection is back."
	noticeConflict = "A record you changed was deleted on the server. The local copy has been removed."
)

type syncEngine struct {
	queue    store.QueueRepository
	failed   store.FailedQueueRepository
	records  store.RecordRepository
	api      adapter.RemoteAPI
	monitor  ConnectivityMonitor
	notifier notify.Notifier
	ids      IDGenerator
	now      func() time.Time

	// failedLimit caps the failed collection; zero disables the cap.
	failedLimit int

	mu    sync.Mutex
	state runState

	pendingView  *observable.Subject[[]models.QueuedRequest]
	failedView   *observable.Subject[[]models.FailedRequest]
	pendingCount *observable.Subject[int]

	cachesMu  sync.RWMutex
	caches    map[int]CacheRefresher
	nextCache int

	// promoted maps placeholder ids to the server ids that replaced them.
	promotedMu sync.Mutex
	promoted   map[int64]int64

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	logger *logger.Logger
}

// NewSyncEngine creates the sync engine over the durable collections of
// storages. It does no I/O until Start or one of its operations is called.
func NewSyncEngine(
	storages *store.ClientStorages,
	api adapter.RemoteAPI,
	monitor ConnectivityMonitor,
	notifier notify.Notifier,
	failedLimit int,
	logger *logger.Logger,
) SyncEngine {
	return &syncEngine{
		queue:        storages.Queue,
		failed:       storages.FailedQueue,
		records:      storages.Records,
		api:          api,
		monitor:      monitor,
		notifier:     notifier,
		ids:          utils.NewUUIDGenerator(),
		now:          time.Now,
		failedLimit:  failedLimit,
		pendingView:  observable.New[[]models.QueuedRequest](nil),
		failedView:   observable.New[[]models.FailedRequest](nil),
		pendingCount: observable.NewDistinct(0),
		caches:       make(map[int]CacheRefresher),
		promoted:     make(map[int64]int64),
		logger:       logger,
	}
}

func (e *syncEngine) AddToQueue(ctx context.Context, req models.QueuedRequest) error {
	if req.URL == "" || !models.IsMutation(req.Method) {
		return fmt.Errorf("%w: %q %q", ErrInvalidRequest, req.Method, req.URL)
	}
	req.Method = strings.ToUpper(req.Method)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = e.ids.Generate()
	}

	if e.monitor.IsOnlineNow() {
		resp, err := e.api.Do(ctx, toAPIRequest(req))
		if err == nil {
			if req.IsCreation() {
				e.reconcileCreation(ctx, req, resp)
			}
			return nil
		}
		e.logger.Info().Err(err).
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("immediate attempt failed, queueing request")
	}

	req.ID = 0
	if req.CreatedAt.IsZero() {
		req.CreatedAt = e.now().UTC()
	}
	stored, err := e.queue.Add(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to queue request: %w", err)
	}

	e.logger.Debug().
		Int64("id", stored.ID).
		Str("method", stored.Method).
		Str("url", stored.URL).
		Msg("request queued")

	e.publishViews(ctx)
	e.notifier.Notify(ctx, notify.Notice{Level: notify.LevelInfo, Message: noticeQueued})
	return nil
}

func (e *syncEngine) ProcessQueue(ctx context.Context) {
	if !e.monitor.IsOnlineNow() {
		e.logger.Debug().Msg("offline, queue processing skipped")
		return
	}

	e.mu.Lock()
	if e.state != stateIdle {
		e.state = stateRunningRerunPending
		e.mu.Unlock()
		return
	}
	e.state = stateRunning
	e.mu.Unlock()

	for {
		e.runQueue(ctx)

		e.mu.Lock()
		if e.state != stateRunningRerunPending || ctx.Err() != nil || !e.monitor.IsOnlineNow() {
			e.state = stateIdle
			e.mu.Unlock()
			return
		}
		e.state = stateRunning
		e.mu.Unlock()
	}
}

// runQueue performs one run over a snapshot of the pending collection.
func (e *syncEngine) runQueue(ctx context.Context) {
	items, err := e.queue.GetAll(ctx)
	if err != nil {
		e.logger.Err(err).Msg("failed to read pending requests")
		return
	}
	if len(items) == 0 {
		return
	}

	e.logger.Info().Int("pending", len(items)).Msg("processing sync queue")

	// a started HTTP call is allowed to finish even when ctx is cancelled
	callCtx := context.WithoutCancel(ctx)

	var synced int
	touched := make(map[string]struct{})
	defer func() { e.finishRun(ctx, synced, touched) }()

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if item.ID == 0 {
			e.logger.Error().Err(ErrMissingQueueID).
				Str("method", item.Method).
				Str("url", item.URL).
				Msg("skipping queued request")
			continue
		}

		resp, err := e.api.Do(callCtx, toAPIRequest(item))
		result := classifyOutcome(item.Method, err)

		e.logger.Debug().
			Int64("id", item.ID).
			Str("method", item.Method).
			Str("url", item.URL).
			Stringer("outcome", result).
			Msg("queued request executed")

		switch result {
		case outcomeSucceeded:
			if item.IsCreation() {
				e.settleCreation(ctx, item, resp)
			} else {
				e.dropPending(ctx, item.ID)
			}
			synced++
			if target, ok := resolveResource(item.URL); ok {
				touched[target.route.collection] = struct{}{}
			}
		case outcomeAbort:
			e.logger.Warn().Err(err).
				Int64("id", item.ID).
				Msg("sync run aborted, remaining requests stay queued")
			return
		case outcomeStale:
			e.ResolveStaleConflict(ctx, item.URL)
			e.dropPending(ctx, item.ID)
		case outcomeFailed:
			e.moveToFailed(ctx, item, err)
		}

		e.publishViews(ctx)
	}
}

// finishRun reports synced changes and pulls the collections they touched
// so the caches show the server state.
func (e *syncEngine) finishRun(ctx context.Context, synced int, touched map[string]struct{}) {
	if synced == 0 {
		return
	}

	e.notifier.Notify(ctx, notify.Notice{
		Level:   notify.LevelSuccess,
		Message: fmt.Sprintf("%d pending change(s) synced", synced),
	})

	if ctx.Err() != nil {
		return
	}
	for collection := range touched {
		for _, c := range e.cachesFor(collection) {
			if err := c.Refresh(ctx); err != nil {
				e.logger.Warn().Err(err).Str("collection", collection).Msg("failed to refresh collection after sync")
			}
		}
	}
}

func (e *syncEngine) dropPending(ctx context.Context, id int64) {
	if err := e.queue.Delete(ctx, id); err != nil {
		e.logger.Err(err).Int64("id", id).Msg("failed to remove request from pending collection")
	}
}

func (e *syncEngine) moveToFailed(ctx context.Context, item models.QueuedRequest, cause error) {
	failed := item.Failed(failureMessage(cause), e.now().UTC())

	_, err := e.failed.Add(ctx, failed)
	if errors.Is(err, store.ErrDuplicateKey) {
		failed.ID = 0
		_, err = e.failed.Add(ctx, failed)
	}
	if err != nil {
		e.logger.Err(err).Int64("id", item.ID).Msg("failed to park request, it stays pending")
		return
	}

	e.logger.Warn().
		Int64("id", item.ID).
		Str("method", item.Method).
		Str("url", item.URL).
		Str("error", failed.Error).
		Msg("request moved to failed collection")

	e.dropPending(ctx, item.ID)
	e.enforceFailedLimit(ctx)
}

func (e *syncEngine) enforceFailedLimit(ctx context.Context) {
	if e.failedLimit <= 0 {
		return
	}

	evicted, err := e.failed.TrimOldest(ctx, e.failedLimit)
	if err != nil {
		e.logger.Err(err).Msg("failed to trim failed collection")
		return
	}
	if evicted > 0 {
		e.logger.Warn().Int64("evicted", evicted).Int("limit", e.failedLimit).Msg("failed collection is full, oldest requests evicted")
		e.notifier.Notify(ctx, notify.Notice{
			Level:   notify.LevelWarning,
			Message: fmt.Sprintf("%d old failed change(s) were discarded", evicted),
		})
	}
}

// settleCreation removes a sent creation from the pending collection and
// promotes its placeholder. When the creation was amended after the run read
// it, the pending item is rewritten into an update of the created record and
// a follow-up run is flagged.
func (e *syncEngine) settleCreation(ctx context.Context, item models.QueuedRequest, resp models.APIResponse) {
	serverID := e.reconcileCreation(ctx, item, resp)

	current, err := e.queue.GetByKey(ctx, item.ID)
	switch {
	case errors.Is(err, store.ErrQueueItemNotFound):
		return
	case err != nil:
		e.logger.Err(err).Int64("id", item.ID).Msg("failed to re-read sent creation")
		e.dropPending(ctx, item.ID)
		return
	}
	if serverID == 0 || bytes.Equal(current.Payload, item.Payload) {
		e.dropPending(ctx, item.ID)
		return
	}

	target, _ := resolveResource(item.URL)
	tempID, _ := item.TempID()

	update, doc, err := e.amendedUpdate(current, serverID)
	if err != nil {
		e.logger.Err(err).Int64("id", item.ID).Msg("failed to turn amended creation into an update")
		e.dropPending(ctx, item.ID)
		return
	}
	if _, err = e.queue.Update(ctx, update); err != nil {
		e.logger.Err(err).Int64("id", item.ID).Msg("failed to queue update for amended creation")
		e.dropPending(ctx, item.ID)
		return
	}

	// the amendment may have rewritten the placeholder after its promotion
	collection := target.route.collection
	if err = e.records.Delete(ctx, collection, tempID); err != nil {
		e.logger.Err(err).Int64("temp_id", tempID).Msg("failed to delete placeholder")
	}
	if err = e.records.Put(ctx, collection, models.StoredRecord{ID: serverID, Data: doc}); err != nil {
		e.logger.Err(err).Int64("id", serverID).Msg("failed to store amended record")
	}
	e.reloadCaches(ctx, collection)

	e.logger.Info().
		Int64("id", item.ID).
		Int64("server_id", serverID).
		Msg("creation amended while in flight, queued as update")

	e.mu.Lock()
	if e.state == stateRunning {
		e.state = stateRunningRerunPending
	}
	e.mu.Unlock()
}

// amendedUpdate rewrites the amended creation req into a PUT of the record
// created under serverID. It also returns the record document in local shape.
func (e *syncEngine) amendedUpdate(req models.QueuedRequest, serverID int64) (models.QueuedRequest, []byte, error) {
	doc, err := decodeDocument(req.Payload)
	if err != nil {
		return models.QueuedRequest{}, nil, err
	}
	delete(doc, models.TempIDField)
	doc["id"] = serverID

	data, err := json.Marshal(doc)
	if err != nil {
		return models.QueuedRequest{}, nil, err
	}

	req.Method = http.MethodPut
	req.URL = strings.TrimRight(req.URL, "/") + "/" + strconv.FormatInt(serverID, 10)
	req.Payload = data
	req.IdempotencyKey = e.ids.Generate()
	return req, data, nil
}

// reconcileCreation replaces the placeholder of a succeeded creation with the
// record confirmed by the server and returns the server id, or zero when
// nothing was promoted.
func (e *syncEngine) reconcileCreation(ctx context.Context, req models.QueuedRequest, resp models.APIResponse) int64 {
	tempID, _ := req.TempID()
	log := e.logger.With().Str("url", req.URL).Int64("temp_id", tempID).Logger()

	target, ok := resolveResource(req.URL)
	if !ok {
		log.Warn().Msg("no local collection for creation request")
		return 0
	}
	collection := target.route.collection

	placeholder, err := e.records.GetByKey(ctx, collection, tempID)
	if errors.Is(err, store.ErrRecordNotFound) {
		log.Debug().Msg("placeholder not found, creation response discarded")
		return 0
	}
	if err != nil {
		log.Err(err).Msg("failed to read placeholder")
		return 0
	}

	record, err := target.route.normalizeCreated(placeholder, resp.Body)
	if err != nil {
		log.Err(err).Msg("failed to build record from creation response")
		return 0
	}

	if err = e.records.Delete(ctx, collection, tempID); err != nil {
		log.Err(err).Msg("failed to delete placeholder")
		return 0
	}
	e.promotedMu.Lock()
	e.promoted[tempID] = record.ID
	e.promotedMu.Unlock()

	if err = e.records.Put(ctx, collection, record); err != nil {
		log.Err(err).Int64("id", record.ID).Msg("failed to store created record")
	} else {
		log.Debug().Int64("id", record.ID).Msg("placeholder reconciled")
	}
	e.reloadCaches(ctx, collection)
	return record.ID
}

func (e *syncEngine) ResolveStaleConflict(ctx context.Context, rawURL string) {
	target, ok := resolveResource(rawURL)
	if ok && target.id != 0 {
		collection := target.route.collection
		if err := e.records.Delete(ctx, collection, target.id); err != nil {
			e.logger.Err(err).Str("collection", collection).Int64("id", target.id).Msg("failed to delete stale record")
		} else {
			e.reloadCaches(ctx, collection)
		}
	} else {
		e.logger.Warn().Str("url", rawURL).Msg("stale conflict on a url without a local record")
	}

	e.notifier.Notify(ctx, notify.Notice{Level: notify.LevelWarning, Message: noticeConflict})
}

func (e *syncEngine) IsOnline() (<-chan bool, func()) {
	return e.monitor.IsOnline()
}

func (e *syncEngine) PendingRequests() (<-chan []models.QueuedRequest, func()) {
	return e.pendingView.Subscribe()
}

func (e *syncEngine) FailedRequests() (<-chan []models.FailedRequest, func()) {
	return e.failedView.Subscribe()
}

func (e *syncEngine) PendingRequestCount() (<-chan int, func()) {
	return e.pendingCount.Subscribe()
}

// publishViews re-reads both collections into the observable views.
func (e *syncEngine) publishViews(ctx context.Context) {
	if pending, err := e.queue.GetAll(ctx); err != nil {
		e.logger.Err(err).Msg("failed to refresh pending view")
	} else {
		e.pendingView.Set(pending)
		e.pendingCount.Set(len(pending))
	}

	if failed, err := e.failed.GetAll(ctx); err != nil {
		e.logger.Err(err).Msg("failed to refresh failed view")
	} else {
		e.failedView.Set(failed)
	}
}

func (e *syncEngine) RetryFailedRequest(ctx context.Context, item models.FailedRequest) error {
	if err := e.failed.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to remove failed request: %w", err)
	}

	if err := e.AddToQueue(ctx, item.Requeue()); err != nil {
		if _, restoreErr := e.failed.Add(ctx, item); restoreErr != nil {
			e.logger.Err(restoreErr).Int64("id", item.ID).Msg("failed to restore failed request")
		}
		e.publishViews(ctx)
		return err
	}

	e.publishViews(ctx)
	return nil
}

func (e *syncEngine) RetryAllFailedRequests(ctx context.Context) error {
	items, err := e.failed.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read failed requests: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	now := e.now().UTC()
	reqs := make([]models.QueuedRequest, 0, len(items))
	for _, item := range items {
		req := item.Requeue()
		req.IdempotencyKey = e.ids.Generate()
		req.CreatedAt = now
		reqs = append(reqs, req)
	}

	stored, err := e.queue.BulkAdd(ctx, reqs)
	if err != nil {
		e.rollbackPending(ctx, stored)
		return fmt.Errorf("failed to requeue failed requests: %w", err)
	}

	// delete by id: a run may have parked new failures meanwhile
	for _, item := range items {
		if err = e.failed.Delete(ctx, item.ID); err != nil {
			e.rollbackPending(ctx, stored)
			e.publishViews(ctx)
			return fmt.Errorf("failed to clear failed requests: %w", err)
		}
	}

	e.logger.Info().Int("requeued", len(stored)).Msg("failed requests requeued")
	e.publishViews(ctx)

	e.ProcessQueue(ctx)
	return nil
}

func (e *syncEngine) rollbackPending(ctx context.Context, stored []models.QueuedRequest) {
	for _, req := range stored {
		e.dropPending(ctx, req.ID)
	}
}

func (e *syncEngine) DeleteFailedRequest(ctx context.Context, id int64) error {
	if err := e.failed.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete failed request: %w", err)
	}
	e.publishViews(ctx)
	return nil
}

func (e *syncEngine) AmendPendingCreation(ctx context.Context, collection string, tempID int64, payload []byte) (bool, error) {
	req, ok, err := e.findPendingCreation(ctx, collection, tempID)
	if err != nil || !ok {
		return false, err
	}

	req.Payload = payload
	if _, err = e.queue.Update(ctx, req); err != nil {
		if errors.Is(err, store.ErrQueueItemNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to amend pending creation: %w", err)
	}

	e.publishViews(ctx)
	return true, nil
}

func (e *syncEngine) CancelPendingCreation(ctx context.Context, collection string, tempID int64) (bool, error) {
	req, ok, err := e.findPendingCreation(ctx, collection, tempID)
	if err != nil || !ok {
		return false, err
	}

	if err = e.queue.Delete(ctx, req.ID); err != nil {
		return false, fmt.Errorf("failed to cancel pending creation: %w", err)
	}

	e.publishViews(ctx)
	return true, nil
}

func (e *syncEngine) findPendingCreation(ctx context.Context, collection string, tempID int64) (models.QueuedRequest, bool, error) {
	items, err := e.queue.GetAll(ctx)
	if err != nil {
		return models.QueuedRequest{}, false, fmt.Errorf("failed to read pending requests: %w", err)
	}
	for _, item := range items {
		if !item.IsCreation() {
			continue
		}
		if id, ok := item.TempID(); !ok || id != tempID {
			continue
		}
		if target, ok := resolveResource(item.URL); ok && target.route.collection == collection {
			return item, true, nil
		}
	}
	return models.QueuedRequest{}, false, nil
}

func (e *syncEngine) PromotedID(tempID int64) (int64, bool) {
	e.promotedMu.Lock()
	defer e.promotedMu.Unlock()

	id, ok := e.promoted[tempID]
	return id, ok
}

func (e *syncEngine) RegisterCache(c CacheRefresher) func() {
	e.cachesMu.Lock()
	id := e.nextCache
	e.nextCache++
	e.caches[id] = c
	e.cachesMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.cachesMu.Lock()
			delete(e.caches, id)
			e.cachesMu.Unlock()
		})
	}
}

func (e *syncEngine) cachesFor(collection string) []CacheRefresher {
	e.cachesMu.RLock()
	defer e.cachesMu.RUnlock()

	var out []CacheRefresher
	for _, c := range e.caches {
		if c.Collection() == collection {
			out = append(out, c)
		}
	}
	return out
}

func (e *syncEngine) reloadCaches(ctx context.Context, collection string) {
	for _, c := range e.cachesFor(collection) {
		if err := c.Reload(ctx); err != nil {
			e.logger.Err(err).Str("collection", collection).Msg("failed to reload cache")
		}
	}
}

func (e *syncEngine) Start(ctx context.Context) {
	e.lifecycleMu.Lock()
	if e.cancel != nil {
		e.lifecycleMu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	online, release := e.monitor.IsOnline()
	e.wg.Add(1)
	e.lifecycleMu.Unlock()

	e.publishViews(runCtx)

	go func() {
		defer e.wg.Done()
		defer release()

		wasOnline := false
		for {
			select {
			case <-runCtx.Done():
				return
			case up, ok := <-online:
				if !ok {
					return
				}
				if up && !wasOnline {
					e.logger.Info().Msg("api reachable, processing sync queue")
					e.ProcessQueue(runCtx)
				}
				wasOnline = up
			}
		}
	}()
}

func (e *syncEngine) Close() {
	e.lifecycleMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

func toAPIRequest(req models.QueuedRequest) models.APIRequest {
	return models.APIRequest{
		Method:         req.Method,
		URL:            req.URL,
		Body:           req.Payload,
		IdempotencyKey: req.IdempotencyKey,
	}
}
