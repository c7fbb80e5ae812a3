package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/observable"
	"github.com/devninja1/kiosk-app/internal/store"
	"github.com/devninja1/kiosk-app/internal/utils"
	"github.com/devninja1/kiosk-app/models"
)

// RecordServiceDeps are the collaborators shared by the record services.
type RecordServiceDeps struct {
	Engine  SyncEngine
	Records store.RecordRepository
	API     adapter.RemoteAPI
	Monitor ConnectivityMonitor
	// IDs generates idempotency keys for creations; UUIDv7 when nil.
	IDs    IDGenerator
	Logger *logger.Logger
}

// recordService is the online/offline routing and caching shared by the
// domain services.
type recordService[T models.Record[T]] struct {
	collection string
	resource   string
	route      resourceRoute

	engine  SyncEngine
	records store.RecordRepository
	api     adapter.RemoteAPI
	monitor ConnectivityMonitor
	ids     IDGenerator

	cache *observable.Subject[[]T]
	// pull fetches the collection from the API; set by the concrete service.
	pull func(ctx context.Context) error

	reloadMu   sync.Mutex
	unregister func()
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	logger *logger.Logger
}

func newRecordService[T models.Record[T]](deps RecordServiceDeps, collection, resource string) *recordService[T] {
	ids := deps.IDs
	if ids == nil {
		ids = utils.NewUUIDGenerator()
	}

	return &recordService[T]{
		collection: collection,
		resource:   resource,
		route:      routeForResource(resource, collection),
		engine:     deps.Engine,
		records:    deps.Records,
		api:        deps.API,
		monitor:    deps.Monitor,
		ids:        ids,
		cache:      observable.New[[]T](nil),
		logger:     deps.Logger,
	}
}

// start loads the cache, pulls from the API when reachable and refreshes on
// every reconnect until Close.
func (s *recordService[T]) start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %w", s.collection, err)
	}
	s.unregister = s.engine.RegisterCache(s)

	wasOnline := s.monitor.IsOnlineNow()
	if wasOnline {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn().Err(err).Str("collection", s.collection).Msg("initial refresh failed")
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	online, release := s.monitor.IsOnline()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()

		for {
			select {
			case <-loopCtx.Done():
				return
			case up, ok := <-online:
				if !ok {
					return
				}
				if up && !wasOnline {
					if err := s.Refresh(loopCtx); err != nil {
						s.logger.Warn().Err(err).Str("collection", s.collection).Msg("refresh on reconnect failed")
					}
				}
				wasOnline = up
			}
		}
	}()

	return nil
}

func (s *recordService[T]) Collection() string {
	return s.collection
}

// Reload replaces the cache with the durable collection.
func (s *recordService[T]) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	stored, err := s.records.GetAll(ctx, s.collection)
	if err != nil {
		return err
	}

	items := make([]T, 0, len(stored))
	for _, rec := range stored {
		var v T
		if err = json.Unmarshal(rec.Data, &v); err != nil {
			s.logger.Warn().Err(err).
				Str("collection", s.collection).
				Int64("id", rec.ID).
				Msg("skipping undecodable record")
			continue
		}
		items = append(items, v.WithID(rec.ID))
	}

	s.cache.Set(items)
	return nil
}

func (s *recordService[T]) Refresh(ctx context.Context) error {
	return s.pull(ctx)
}

func (s *recordService[T]) List() (<-chan []T, func()) {
	return s.cache.Subscribe()
}

func (s *recordService[T]) All() []T {
	return s.cache.Get()
}

func (s *recordService[T]) Get(_ context.Context, id int64) (T, error) {
	for _, v := range s.cache.Get() {
		if v.RecordID() == id {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s/%d", store.ErrRecordNotFound, s.collection, id)
}

// Create sends the record to the API, or stores it under a temporary id and
// queues its creation. Every attempt of one creation carries the same
// idempotency key.
func (s *recordService[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T

	key := s.ids.Generate()

	if s.monitor.IsOnlineNow() {
		body, err := createBody(record)
		if err != nil {
			return zero, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}

		resp, err := s.api.Do(ctx, models.APIRequest{
			Method:         http.MethodPost,
			URL:            s.resource,
			Body:           body,
			IdempotencyKey: key,
		})
		switch {
		case err == nil:
			return s.storeCreated(ctx, body, resp.Body)
		case !errors.Is(err, adapter.ErrUnreachable):
			return zero, fmt.Errorf("failed to create %s record: %w", s.collection, err)
		}

		s.logger.Info().Err(err).Str("collection", s.collection).Msg("api unreachable, creating record offline")
	}

	return s.createOffline(ctx, record, key)
}

func (s *recordService[T]) storeCreated(ctx context.Context, sent, response json.RawMessage) (T, error) {
	var zero T

	stored, err := s.route.normalizeCreated(sent, response)
	if err != nil {
		return zero, err
	}

	var created T
	if err = json.Unmarshal(stored.Data, &created); err != nil {
		return zero, fmt.Errorf("failed to decode created %s record: %w", s.collection, err)
	}
	created = created.WithID(stored.ID)

	if err = s.records.Put(ctx, s.collection, stored); err != nil {
		return zero, err
	}
	return created, s.Reload(ctx)
}

func (s *recordService[T]) createOffline(ctx context.Context, record T, key string) (T, error) {
	var zero T

	tempID := models.NewTempID()
	record = record.WithID(tempID)

	data, err := json.Marshal(record)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	payload, err := creationPayload(record, tempID)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if err = s.records.Put(ctx, s.collection, models.StoredRecord{ID: tempID, Data: data}); err != nil {
		return zero, err
	}
	if err = s.Reload(ctx); err != nil {
		return zero, err
	}

	req := models.QueuedRequest{URL: s.resource, Method: http.MethodPost, Payload: payload, IdempotencyKey: key}
	if err = s.engine.AddToQueue(ctx, req); err != nil {
		if delErr := s.records.Delete(ctx, s.collection, tempID); delErr != nil {
			s.logger.Err(delErr).Int64("id", tempID).Msg("failed to roll back placeholder")
		}
		_ = s.Reload(ctx)
		return zero, err
	}

	// the engine may have sent the creation right away
	if serverID, ok := s.engine.PromotedID(tempID); ok {
		if created, getErr := s.Get(ctx, serverID); getErr == nil {
			return created, nil
		}
		return record.WithID(serverID), nil
	}

	return record, nil
}

// requirePlaceholder fails with [store.ErrRecordNotFound] when the
// placeholder tempID is no longer stored, for example after its promotion.
func (s *recordService[T]) requirePlaceholder(ctx context.Context, tempID int64) error {
	if _, err := s.records.GetByKey(ctx, s.collection, tempID); err != nil {
		if serverID, ok := s.engine.PromotedID(tempID); ok && errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s/%d was synced as %d", err, s.collection, tempID, serverID)
		}
		return err
	}
	return nil
}

func (s *recordService[T]) Update(ctx context.Context, record T) (T, error) {
	var zero T

	id := record.RecordID()
	if id == 0 {
		return zero, fmt.Errorf("%w: %s record without id", ErrInvalidRecord, s.collection)
	}

	if models.IsTempID(id) {
		if err := s.requirePlaceholder(ctx, id); err != nil {
			return zero, err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err = s.records.Put(ctx, s.collection, models.StoredRecord{ID: id, Data: data}); err != nil {
		return zero, err
	}
	if err = s.Reload(ctx); err != nil {
		return zero, err
	}

	if models.IsTempID(id) {
		if err = s.amendCreation(ctx, record, id); err != nil {
			return zero, err
		}
		return record, nil
	}

	url := s.recordURL(id)
	if s.monitor.IsOnlineNow() {
		_, err = s.api.Do(ctx, models.APIRequest{Method: http.MethodPut, URL: url, Body: data})
		switch {
		case err == nil:
			return record, nil
		case errors.Is(err, adapter.ErrNotFound):
			s.engine.ResolveStaleConflict(ctx, url)
			return zero, fmt.Errorf("%w: %s/%d", ErrRecordGone, s.collection, id)
		case !errors.Is(err, adapter.ErrUnreachable):
			return zero, fmt.Errorf("failed to update %s record %d: %w", s.collection, id, err)
		}
	}

	return record, s.engine.AddToQueue(ctx, models.QueuedRequest{URL: url, Method: http.MethodPut, Payload: data})
}

// amendCreation folds an edit of a placeholder into its queued creation.
func (s *recordService[T]) amendCreation(ctx context.Context, record T, tempID int64) error {
	payload, err := creationPayload(record, tempID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	found, err := s.engine.AmendPendingCreation(ctx, s.collection, tempID, payload)
	if err != nil {
		return err
	}
	if !found {
		if serverID, ok := s.engine.PromotedID(tempID); ok {
			// promoted between the placeholder check and the write
			if err = s.records.Delete(ctx, s.collection, tempID); err != nil {
				return err
			}
			if err = s.Reload(ctx); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s/%d was synced as %d", store.ErrRecordNotFound, s.collection, tempID, serverID)
		}
		s.logger.Warn().
			Str("collection", s.collection).
			Int64("temp_id", tempID).
			Msg("no pending creation for placeholder, edit kept locally only")
	}
	return nil
}

func (s *recordService[T]) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return fmt.Errorf("%w: %s record without id", ErrInvalidRecord, s.collection)
	}
	if models.IsTempID(id) {
		if err := s.requirePlaceholder(ctx, id); err != nil {
			return err
		}
	}

	if err := s.records.Delete(ctx, s.collection, id); err != nil {
		return err
	}
	if err := s.Reload(ctx); err != nil {
		return err
	}

	if models.IsTempID(id) {
		found, err := s.engine.CancelPendingCreation(ctx, s.collection, id)
		if err != nil || found {
			return err
		}
		if serverID, ok := s.engine.PromotedID(id); ok {
			// promoted meanwhile: delete the created record instead
			return s.Delete(ctx, serverID)
		}
		return nil
	}

	url := s.recordURL(id)
	if s.monitor.IsOnlineNow() {
		_, err := s.api.Do(ctx, models.APIRequest{Method: http.MethodDelete, URL: url})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, adapter.ErrNotFound):
			s.engine.ResolveStaleConflict(ctx, url)
			return nil
		case !errors.Is(err, adapter.ErrUnreachable):
			return fmt.Errorf("failed to delete %s record %d: %w", s.collection, id, err)
		}
	}

	return s.engine.AddToQueue(ctx, models.QueuedRequest{URL: url, Method: http.MethodDelete})
}

// replaceFromAPI pulls the whole collection and replaces the durable copy.
// Placeholders still waiting for their creation are kept; promoted ones are
// dropped.
func (s *recordService[T]) replaceFromAPI(ctx context.Context) error {
	resp, err := s.api.Do(ctx, models.APIRequest{Method: http.MethodGet, URL: s.resource})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", s.collection, err)
	}

	raw, err := decodeList(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.collection, err)
	}

	records := make([]models.StoredRecord, 0, len(raw))
	for _, doc := range raw {
		rec, convErr := s.toStored(doc)
		if convErr != nil {
			s.logger.Warn().Err(convErr).Str("collection", s.collection).Msg("skipping server record")
			continue
		}
		records = append(records, rec)
	}

	local, err := s.records.GetAll(ctx, s.collection)
	if err != nil {
		return err
	}
	for _, rec := range local {
		if !models.IsTempID(rec.ID) {
			continue
		}
		if _, promoted := s.engine.PromotedID(rec.ID); promoted {
			continue
		}
		records = append(records, rec)
	}

	if err = s.records.ReplaceAll(ctx, s.collection, records); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// toStored converts one server document into its durable form.
func (s *recordService[T]) toStored(doc json.RawMessage) (models.StoredRecord, error) {
	v, err := decodeRouted[T](s.route, doc)
	if err != nil {
		return models.StoredRecord{}, err
	}
	if v.RecordID() <= 0 {
		return models.StoredRecord{}, fmt.Errorf("%w: server record without id", ErrInvalidRecord)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return models.StoredRecord{}, err
	}
	return models.StoredRecord{ID: v.RecordID(), Data: data}, nil
}

func (s *recordService[T]) recordURL(id int64) string {
	return s.resource + "/" + strconv.FormatInt(id, 10)
}

func (s *recordService[T]) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.unregister != nil {
		s.unregister()
	}
}

// decodeList accepts a bare JSON array or an object wrapping it in "items"
// or "data".
func decodeList(body json.RawMessage) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Items []json.RawMessage `json:"items"`
		Data  []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Items != nil {
		return wrapped.Items, nil
	}
	return wrapped.Data, nil
}
