// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/mock"
	"github.com/devninja1/kiosk-app/internal/notify"
	"github.com/devninja1/kiosk-app/internal/store"
	"github.com/devninja1/kiosk-app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// ── AddToQueue ───────────────────────────────────────────────────────────────

func TestAddToQueue_OfflineNeverCallsAPI(t *testing.T) {
	f := newFixture(t, false)

	err := f.engine.AddToQueue(f.ctx, models.QueuedRequest{
		Method:  "put",
		URL:     "/api/customers/3",
		Payload: json.RawMessage(`{"id":3,"name":"Ada"}`),
	})
	require.NoError(t, err)

	pending := f.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, http.MethodPut, pending[0].Method)
	assert.Equal(t, "/api/customers/3", pending[0].URL)
	assert.JSONEq(t, `{"id":3,"name":"Ada"}`, string(pending[0].Payload))
	assert.Equal(t, "key-1", pending[0].IdempotencyKey)
	assert.Equal(t, 1, f.notifier.count(notify.LevelInfo))

	assert.Len(t, firstValue(t, f.engine.PendingRequests), 1)
	assert.Equal(t, 1, firstValue(t, f.engine.PendingRequestCount))
}

func TestAddToQueue_OnlineSuccessCreatesNoEntry(t *testing.T) {
	f := newFixture(t, true)

	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.APIRequest) (models.APIResponse, error) {
			assert.Equal(t, http.MethodDelete, req.Method)
			assert.Equal(t, "key-1", req.IdempotencyKey)
			return models.APIResponse{StatusCode: http.StatusNoContent}, nil
		})

	require.NoError(t, f.engine.AddToQueue(f.ctx, models.QueuedRequest{Method: http.MethodDelete, URL: "/api/products/8"}))

	assert.Empty(t, f.pending())
	assert.Zero(t, f.notifier.count(notify.LevelInfo))
}

func TestAddToQueue_OnlineFailurePersistsWithSameKey(t *testing.T) {
	f := newFixture(t, true)

	var sentKey string
	f.api.EXPECT().
		Do(gomock.Any(), isRequest(http.MethodPut, "/api/products/8")).
		DoAndReturn(func(_ context.Context, req models.APIRequest) (models.APIResponse, error) {
			sentKey = req.IdempotencyKey
			return models.APIResponse{}, unreachable()
		})

	require.NoError(t, f.engine.AddToQueue(f.ctx, models.QueuedRequest{Method: http.MethodPut, URL: "/api/products/8"}))

	pending := f.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, sentKey, pending[0].IdempotencyKey)
	assert.Equal(t, fixedNow, pending[0].CreatedAt.UTC())
}

func TestAddToQueue_InvalidRequest(t *testing.T) {
	f := newFixture(t, false)

	tests := []models.QueuedRequest{
		{Method: http.MethodGet, URL: "/api/customers"},
		{Method: http.MethodPost, URL: ""},
		{Method: "", URL: "/api/customers"},
	}
	for _, req := range tests {
		err := f.engine.AddToQueue(f.ctx, req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "%+v", req)
	}
	assert.Empty(t, f.pending())
}

func TestAddToQueue_OnlineCreationReconcilesPlaceholder(t *testing.T) {
	f := newFixture(t, true)
	f.putRecord(models.CollectionCustomers, -42, models.Customer{ID: -42, Name: "Ada"})

	f.api.EXPECT().
		Do(gomock.Any(), isRequest(http.MethodPost, "/api/customers")).
		Return(jsonResponse(`{"id":7,"name":"Ada"}`), nil)

	require.NoError(t, f.engine.AddToQueue(f.ctx, models.QueuedRequest{
		Method:  http.MethodPost,
		URL:     "/api/customers",
		Payload: json.RawMessage(`{"name":"Ada","tempId":-42}`),
	}))

	assert.False(t, f.hasRecord(models.CollectionCustomers, -42))
	assert.True(t, f.hasRecord(models.CollectionCustomers, 7))
	assert.Empty(t, f.pending())
}

// ── ProcessQueue ─────────────────────────────────────────────────────────────

func TestProcessQueue_SequentialInInsertionOrder(t *testing.T) {
	f := newFixture(t, true)

	f.enqueue(http.MethodPut, "/api/products/1", `{"id":1}`)
	f.enqueue(http.MethodPatch, "/api/products/2", `{"id":2}`)
	f.enqueue(http.MethodDelete, "/api/products/3", "")

	var inFlight, maxInFlight atomic.Int64
	var order []string
	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Times(3).
		DoAndReturn(func(_ context.Context, req models.APIRequest) (models.APIResponse, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			order = append(order, req.Method+" "+req.URL)
			time.Sleep(2 * time.Millisecond)
			return models.APIResponse{StatusCode: http.StatusOK}, nil
		})

	f.engine.ProcessQueue(f.ctx)

	assert.Equal(t, []string{
		"PUT /api/products/1",
		"PATCH /api/products/2",
		"DELETE /api/products/3",
	}, order)
	assert.Equal(t, int64(1), maxInFlight.Load())
	assert.Empty(t, f.pending())
	assert.Equal(t, 1, f.notifier.count(notify.LevelSuccess))
	assert.Equal(t, 0, firstValue(t, f.engine.PendingRequestCount))
}

func TestProcessQueue_OfflineDoesNothing(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(http.MethodPut, "/api/products/1", `{"id":1}`)

	f.engine.ProcessQueue(f.ctx)

	assert.Len(t, f.pending(), 1)
}

func TestProcessQueue_AbortConditions(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "transport failure", err: unreachable()},
		{name: "server error", err: statusErr(http.StatusServiceUnavailable, "maintenance")},
		{name: "internal error", err: statusErr(http.StatusInternalServerError, "boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)

			f.enqueue(http.MethodPut, "/api/products/1", `{"id":1}`)
			second := f.enqueue(http.MethodPut, "/api/products/2", `{"id":2}`)
			third := f.enqueue(http.MethodDelete, "/api/products/3", "")

			gomock.InOrder(
				f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPut, "/api/products/1")).
					Return(models.APIResponse{StatusCode: http.StatusOK}, nil),
				f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPut, "/api/products/2")).
					Return(models.APIResponse{}, tt.err),
			)

			f.engine.ProcessQueue(f.ctx)

			pending := f.pending()
			require.Len(t, pending, 2)
			assert.Equal(t, second.ID, pending[0].ID)
			assert.Equal(t, second.URL, pending[0].URL)
			assert.Equal(t, third.ID, pending[1].ID)
			assert.Equal(t, third.URL, pending[1].URL)
			assert.Empty(t, f.failed())
		})
	}
}

func TestProcessQueue_StaleConflictDeletesLocalRecord(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t, true)
			f.putRecord(models.CollectionCustomers, 5, models.Customer{ID: 5, Name: "Grace"})
			f.enqueue(method, "/api/customers/5", `{"id":5}`)

			f.api.EXPECT().
				Do(gomock.Any(), isRequest(method, "/api/customers/5")).
				Return(models.APIResponse{}, statusErr(http.StatusNotFound, "customer not found"))

			f.engine.ProcessQueue(f.ctx)

			assert.False(t, f.hasRecord(models.CollectionCustomers, 5))
			assert.Empty(t, f.pending())
			assert.Empty(t, f.failed())
			assert.Equal(t, 1, f.notifier.count(notify.LevelWarning))
		})
	}
}

func TestProcessQueue_NotFoundOnCreateFails(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(http.MethodPost, "/api/customers", `{"name":"Ada","tempId":-1}`)

	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(models.APIResponse{}, statusErr(http.StatusNotFound, "no such route"))

	f.engine.ProcessQueue(f.ctx)

	assert.Empty(t, f.pending())
	assert.Len(t, f.failed(), 1)
}

func TestProcessQueue_ValidationFailureMovesToFailed(t *testing.T) {
	f := newFixture(t, true)
	queued := f.enqueue(http.MethodPut, "/api/sales/9", `{"id":9,"total":-1}`)
	f.enqueue(http.MethodDelete, "/api/products/4", "")

	gomock.InOrder(
		f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPut, "/api/sales/9")).
			Return(models.APIResponse{}, statusErr(http.StatusBadRequest, "total must be positive")),
		f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodDelete, "/api/products/4")).
			Return(models.APIResponse{StatusCode: http.StatusNoContent}, nil),
	)

	f.engine.ProcessQueue(f.ctx)

	assert.Empty(t, f.pending())

	failed := f.failed()
	require.Len(t, failed, 1)
	assert.Equal(t, queued.URL, failed[0].URL)
	assert.Equal(t, queued.Method, failed[0].Method)
	assert.JSONEq(t, string(queued.Payload), string(failed[0].Payload))
	assert.Contains(t, failed[0].Error, "total must be positive")
	assert.Equal(t, fixedNow, failed[0].Timestamp.UTC())

	assert.Len(t, firstValue(t, f.engine.FailedRequests), 1)
}

func TestProcessQueue_QueuedCreationPromotesPlaceholder(t *testing.T) {
	f := newFixture(t, true)
	f.putRecord(models.CollectionProducts, -100, models.Product{ID: -100, Name: "Tea", Price: 2.5, Stock: 4})
	f.enqueue(http.MethodPost, "/api/products", `{"name":"Tea","price":2.5,"stock":4,"tempId":-100}`)

	f.api.EXPECT().
		Do(gomock.Any(), isRequest(http.MethodPost, "/api/products")).
		Return(jsonResponse(`{"id":31,"name":"Tea","price":2.5,"stock":4}`), nil)

	f.engine.ProcessQueue(f.ctx)

	assert.False(t, f.hasRecord(models.CollectionProducts, -100))
	data, err := f.storages.Records.GetByKey(f.ctx, models.CollectionProducts, 31)
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, json.Unmarshal(data, &product))
	assert.Equal(t, models.Product{ID: 31, Name: "Tea", Price: 2.5, Stock: 4}, product)
	assert.NotContains(t, string(data), models.TempIDField)

	serverID, ok := f.engine.PromotedID(-100)
	require.True(t, ok)
	assert.Equal(t, int64(31), serverID)
}

func TestProcessQueue_CreationWithoutPlaceholderDiscardsResponse(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(http.MethodPost, "/api/products", `{"name":"Tea","tempId":-100}`)

	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(jsonResponse(`{"id":31,"name":"Tea"}`), nil)

	f.engine.ProcessQueue(f.ctx)

	assert.Empty(t, f.pending())
	assert.False(t, f.hasRecord(models.CollectionProducts, 31))
}

func TestProcessQueue_CreationAmendedInFlightBecomesUpdate(t *testing.T) {
	f := newFixture(t, true)
	f.putRecord(models.CollectionCustomers, -5, models.Customer{ID: -5, Name: "Ada"})
	f.enqueue(http.MethodPost, "/api/customers", `{"name":"Ada","tempId":-5}`)

	gomock.InOrder(
		f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPost, "/api/customers")).
			DoAndReturn(func(ctx context.Context, _ models.APIRequest) (models.APIResponse, error) {
				// the user edits the placeholder while the creation is sent
				f.putRecord(models.CollectionCustomers, -5, models.Customer{ID: -5, Name: "Ada L."})
				found, err := f.engine.AmendPendingCreation(ctx, models.CollectionCustomers, -5, []byte(`{"name":"Ada L.","tempId":-5}`))
				require.NoError(t, err)
				require.True(t, found)
				return jsonResponse(`{"id":77}`), nil
			}),
		f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPut, "/api/customers/77")).
			DoAndReturn(func(_ context.Context, req models.APIRequest) (models.APIResponse, error) {
				assert.JSONEq(t, `{"id":77,"name":"Ada L."}`, string(req.Body))
				assert.NotEmpty(t, req.IdempotencyKey)
				return jsonResponse(`{}`), nil
			}),
	)

	f.engine.ProcessQueue(f.ctx)

	assert.Empty(t, f.pending())
	assert.False(t, f.hasRecord(models.CollectionCustomers, -5))

	data, err := f.storages.Records.GetByKey(f.ctx, models.CollectionCustomers, 77)
	require.NoError(t, err)
	var customer models.Customer
	require.NoError(t, json.Unmarshal(data, &customer))
	assert.Equal(t, models.Customer{ID: 77, Name: "Ada L."}, customer)
}

func TestProcessQueue_RerunCoalescesAndNeverOverlaps(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(http.MethodPut, "/api/products/1", `{"id":1}`)

	entered := make(chan struct{})
	release := make(chan struct{})
	var inFlight, maxInFlight, calls atomic.Int64

	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, _ models.APIRequest) (models.APIResponse, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return models.APIResponse{StatusCode: http.StatusOK}, nil
		})

	done := make(chan struct{})
	go func() {
		f.engine.ProcessQueue(f.ctx)
		close(done)
	}()

	<-entered
	f.enqueue(http.MethodPut, "/api/products/2", `{"id":2}`)

	// both calls return at once and coalesce into a single follow-up run
	f.engine.ProcessQueue(f.ctx)
	f.engine.ProcessQueue(f.ctx)

	f.engine.mu.Lock()
	assert.Equal(t, stateRunningRerunPending, f.engine.state)
	f.engine.mu.Unlock()

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processing did not finish")
	}

	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(1), maxInFlight.Load())
	assert.Empty(t, f.pending())

	f.engine.mu.Lock()
	assert.Equal(t, stateIdle, f.engine.state)
	f.engine.mu.Unlock()
}

func TestProcessQueue_NoRerunWhenOffline(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(http.MethodPut, "/api/products/1", `{"id":1}`)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(_ context.Context, _ models.APIRequest) (models.APIResponse, error) {
			close(entered)
			<-release
			return models.APIResponse{StatusCode: http.StatusOK}, nil
		})

	done := make(chan struct{})
	go func() {
		f.engine.ProcessQueue(f.ctx)
		close(done)
	}()

	<-entered
	f.enqueue(http.MethodPut, "/api/products/2", `{"id":2}`)
	f.engine.ProcessQueue(f.ctx)
	f.monitor.set(false)
	close(release)
	<-done

	assert.Len(t, f.pending(), 1)
}

// Two queued requests target the same customer: the delete is still sent
// after the update was answered with 404.
func TestProcessQueue_StaleConflictDoesNotShortCircuit(t *testing.T) {
	f := newFixture(t, true)
	f.putRecord(models.CollectionCustomers, 7, models.Customer{ID: 7, Name: "Linus"})
	f.enqueue(http.MethodPut, "/api/customers/7", `{"id":7,"name":"Linus T."}`)
	f.enqueue(http.MethodDelete, "/api/customers/7", "")

	gomock.InOrder(
		f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPut, "/api/customers/7")).
			Return(models.APIResponse{}, statusErr(http.StatusNotFound, "gone")),
		f.api.EXPECT().Do(gomock.Any(), isRequest(http.MethodDelete, "/api/customers/7")).
			Return(models.APIResponse{}, statusErr(http.StatusNotFound, "gone")),
	)

	f.engine.ProcessQueue(f.ctx)

	assert.False(t, f.hasRecord(models.CollectionCustomers, 7))
	assert.Empty(t, f.pending())
	assert.Empty(t, f.failed())
	assert.Equal(t, 2, f.notifier.count(notify.LevelWarning))
}

func TestProcessQueue_SkipsItemsWithoutID(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mock.NewMockQueueRepository(ctrl)
	failed := mock.NewMockFailedQueueRepository(ctrl)
	records := mock.NewMockRecordRepository(ctrl)
	api := mock.NewMockRemoteAPI(ctrl)

	items := []models.QueuedRequest{
		{URL: "/api/products/1", Method: http.MethodPut},
		{ID: 2, URL: "/api/products/2", Method: http.MethodPut},
	}
	queue.EXPECT().GetAll(gomock.Any()).Return(items, nil).AnyTimes()
	failed.EXPECT().GetAll(gomock.Any()).Return(nil, nil).AnyTimes()
	api.EXPECT().Do(gomock.Any(), isRequest(http.MethodPut, "/api/products/2")).Return(models.APIResponse{}, nil)
	queue.EXPECT().Delete(gomock.Any(), int64(2)).Return(nil)

	storages := &store.ClientStorages{Queue: queue, FailedQueue: failed, Records: records}
	engine := NewSyncEngine(storages, api, newFakeMonitor(true), notify.Func(func(context.Context, notify.Notice) {}), 0, logger.Nop())

	engine.ProcessQueue(context.Background())
}

func TestProcessQueue_ReadErrorEndsRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mock.NewMockQueueRepository(ctrl)
	api := mock.NewMockRemoteAPI(ctrl)

	queue.EXPECT().GetAll(gomock.Any()).Return(nil, store.ErrExecutingQuery)

	storages := &store.ClientStorages{Queue: queue, FailedQueue: mock.NewMockFailedQueueRepository(ctrl), Records: mock.NewMockRecordRepository(ctrl)}
	engine := NewSyncEngine(storages, api, newFakeMonitor(true), notify.NewLogNotifier(logger.Nop()), 0, logger.Nop()).(*syncEngine)

	engine.ProcessQueue(context.Background())
	assert.Equal(t, stateIdle, engine.state)
}

func TestProcessQueue_RefreshesTouchedCollections(t *testing.T) {
	f := newFixture(t, true)
	f.enqueue(http.MethodPut, "/api/products/1", `{"id":1}`)

	products := &spyCache{collection: models.CollectionProducts}
	customers := &spyCache{collection: models.CollectionCustomers}
	f.engine.RegisterCache(products)
	unregister := f.engine.RegisterCache(customers)
	defer unregister()

	f.api.EXPECT().Do(gomock.Any(), gomock.Any()).Return(models.APIResponse{StatusCode: http.StatusOK}, nil)

	f.engine.ProcessQueue(f.ctx)

	assert.Equal(t, int64(1), products.refreshes.Load())
	assert.Zero(t, customers.refreshes.Load())
}

// ── failed collection ────────────────────────────────────────────────────────

func TestMoveToFailed_DuplicateKeyGetsFreshID(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mock.NewMockQueueRepository(ctrl)
	failed := mock.NewMockFailedQueueRepository(ctrl)

	item := models.QueuedRequest{ID: 4, URL: "/api/sales", Method: http.MethodPost}
	gomock.InOrder(
		failed.EXPECT().Add(gomock.Any(), gomock.Any()).Return(models.FailedRequest{}, store.ErrDuplicateKey),
		failed.EXPECT().Add(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.FailedRequest) (models.FailedRequest, error) {
				assert.Zero(t, req.ID)
				req.ID = 11
				return req, nil
			}),
	)
	queue.EXPECT().Delete(gomock.Any(), int64(4)).Return(nil)

	storages := &store.ClientStorages{Queue: queue, FailedQueue: failed, Records: mock.NewMockRecordRepository(ctrl)}
	engine := NewSyncEngine(storages, mock.NewMockRemoteAPI(ctrl), newFakeMonitor(true), &recordingNotifier{}, 0, logger.Nop()).(*syncEngine)

	engine.moveToFailed(context.Background(), item, statusErr(http.StatusConflict, "duplicate"))
}

func TestMoveToFailed_KeepsPendingWhenParkingFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	failed := mock.NewMockFailedQueueRepository(ctrl)
	failed.EXPECT().Add(gomock.Any(), gomock.Any()).Return(models.FailedRequest{}, store.ErrExecutingStatement)

	// no Delete expected on the pending collection
	storages := &store.ClientStorages{
		Queue:       mock.NewMockQueueRepository(ctrl),
		FailedQueue: failed,
		Records:     mock.NewMockRecordRepository(ctrl),
	}
	engine := NewSyncEngine(storages, mock.NewMockRemoteAPI(ctrl), newFakeMonitor(true), &recordingNotifier{}, 0, logger.Nop()).(*syncEngine)

	engine.moveToFailed(context.Background(), models.QueuedRequest{ID: 4}, statusErr(http.StatusBadRequest, "bad"))
}

func TestFailedLimit_EvictsOldest(t *testing.T) {
	f := newFixture(t, true)
	f.engine.failedLimit = 2

	for _, url := range []string{"/api/products/1", "/api/products/2", "/api/products/3"} {
		f.enqueue(http.MethodPut, url, `{}`)
	}
	f.api.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Times(3).
		Return(models.APIResponse{}, statusErr(http.StatusUnprocessableEntity, "invalid"))

	f.engine.ProcessQueue(f.ctx)

	failed := f.failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "/api/products/2", failed[0].URL)
	assert.Equal(t, "/api/products/3", failed[1].URL)
	assert.Equal(t, 1, f.notifier.count(notify.LevelWarning))
}

func TestRetryFailedRequest_Offline(t *testing.T) {
	f := newFixture(t, false)
	parked, err := f.storages.FailedQueue.Add(f.ctx, models.QueuedRequest{
		URL:            "/api/customers/2",
		Method:         http.MethodPut,
		Payload:        json.RawMessage(`{"id":2,"name":"Bo"}`),
		IdempotencyKey: "old-key",
		CreatedAt:      fixedNow,
	}.Failed("http 400: bad", fixedNow))
	require.NoError(t, err)

	require.NoError(t, f.engine.RetryFailedRequest(f.ctx, parked))

	assert.Empty(t, f.failed())
	pending := f.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, parked.URL, pending[0].URL)
	assert.Equal(t, parked.Method, pending[0].Method)
	assert.JSONEq(t, string(parked.Payload), string(pending[0].Payload))
	assert.NotEqual(t, "old-key", pending[0].IdempotencyKey)
}

func TestRetryFailedRequest_OnlineSuccess(t *testing.T) {
	f := newFixture(t, true)
	parked, err := f.storages.FailedQueue.Add(f.ctx, models.QueuedRequest{
		URL:    "/api/customers/2",
		Method: http.MethodDelete,
	}.Failed("http 409: locked", fixedNow))
	require.NoError(t, err)

	f.api.EXPECT().
		Do(gomock.Any(), isRequest(http.MethodDelete, "/api/customers/2")).
		Return(models.APIResponse{StatusCode: http.StatusNoContent}, nil)

	require.NoError(t, f.engine.RetryFailedRequest(f.ctx, parked))

	assert.Empty(t, f.failed())
	assert.Empty(t, f.pending())
}

func TestRetryAllFailedRequests(t *testing.T) {
	f := newFixture(t, false)
	for _, url := range []string{"/api/products/1", "/api/products/2"} {
		_, err := f.storages.FailedQueue.Add(f.ctx, models.QueuedRequest{URL: url, Method: http.MethodPut}.Failed("bad", fixedNow))
		require.NoError(t, err)
	}

	require.NoError(t, f.engine.RetryAllFailedRequests(f.ctx))

	assert.Empty(t, f.failed())
	pending := f.pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "/api/products/1", pending[0].URL)
	assert.Equal(t, "/api/products/2", pending[1].URL)
	assert.NotEqual(t, pending[0].IdempotencyKey, pending[1].IdempotencyKey)

	assert.Empty(t, firstValue(t, f.engine.FailedRequests))
	assert.Equal(t, 2, firstValue(t, f.engine.PendingRequestCount))
}

func TestRetryAllFailedRequests_RollsBackOnBulkError(t *testing.T) {
	ctrl := gomock.NewController(t)
	queue := mock.NewMockQueueRepository(ctrl)
	failed := mock.NewMockFailedQueueRepository(ctrl)

	failed.EXPECT().GetAll(gomock.Any()).Return([]models.FailedRequest{
		{QueuedRequest: models.QueuedRequest{ID: 1, URL: "/api/products/1", Method: http.MethodPut}},
		{QueuedRequest: models.QueuedRequest{ID: 2, URL: "/api/products/2", Method: http.MethodPut}},
	}, nil)
	queue.EXPECT().BulkAdd(gomock.Any(), gomock.Len(2)).
		Return([]models.QueuedRequest{{ID: 40}}, store.ErrExecutingStatement)
	queue.EXPECT().Delete(gomock.Any(), int64(40)).Return(nil)

	storages := &store.ClientStorages{Queue: queue, FailedQueue: failed, Records: mock.NewMockRecordRepository(ctrl)}
	engine := NewSyncEngine(storages, mock.NewMockRemoteAPI(ctrl), newFakeMonitor(false), &recordingNotifier{}, 0, logger.Nop())

	err := engine.RetryAllFailedRequests(context.Background())
	assert.ErrorIs(t, err, store.ErrExecutingStatement)
}

func TestDeleteFailedRequest(t *testing.T) {
	f := newFixture(t, false)
	parked, err := f.storages.FailedQueue.Add(f.ctx, models.QueuedRequest{URL: "/api/products/1", Method: http.MethodPut}.Failed("bad", fixedNow))
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteFailedRequest(f.ctx, parked.ID))
	assert.Empty(t, f.failed())
}

// ── placeholders ─────────────────────────────────────────────────────────────

func TestAmendAndCancelPendingCreation(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(http.MethodPost, "/api/customers", `{"name":"Ada","tempId":-5}`)
	f.enqueue(http.MethodPut, "/api/customers/9", `{"id":9}`)

	found, err := f.engine.AmendPendingCreation(f.ctx, models.CollectionCustomers, -5, []byte(`{"name":"Ada L.","tempId":-5}`))
	require.NoError(t, err)
	assert.True(t, found)

	pending := f.pending()
	require.Len(t, pending, 2)
	assert.JSONEq(t, `{"name":"Ada L.","tempId":-5}`, string(pending[0].Payload))

	found, err = f.engine.AmendPendingCreation(f.ctx, models.CollectionCustomers, -6, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, found)

	// same temp id, other collection
	found, err = f.engine.CancelPendingCreation(f.ctx, models.CollectionProducts, -5)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = f.engine.CancelPendingCreation(f.ctx, models.CollectionCustomers, -5)
	require.NoError(t, err)
	assert.True(t, found)

	pending = f.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "/api/customers/9", pending[0].URL)
}

func TestResolveStaleConflict_WarnsUser(t *testing.T) {
	f := newFixture(t, true)
	f.putRecord(models.CollectionProducts, 5, models.Product{ID: 5, Name: "Tea"})

	notifier := mock.NewMockNotifier(gomock.NewController(t))
	notifier.EXPECT().
		Notify(gomock.Any(), notify.Notice{Level: notify.LevelWarning, Message: noticeConflict}).
		Times(1)

	engine := NewSyncEngine(f.storages, f.api, f.monitor, notifier, 0, logger.Nop())
	engine.ResolveStaleConflict(f.ctx, "/api/products/5")

	assert.False(t, f.hasRecord(models.CollectionProducts, 5))
}

func TestResolveStaleConflict_UnknownURLOnlyWarns(t *testing.T) {
	f := newFixture(t, true)
	f.putRecord(models.CollectionCustomers, 5, models.Customer{ID: 5})

	f.engine.ResolveStaleConflict(f.ctx, "/api/reports/5")

	assert.True(t, f.hasRecord(models.CollectionCustomers, 5))
	assert.Equal(t, 1, f.notifier.count(notify.LevelWarning))
}

// ── lifecycle ────────────────────────────────────────────────────────────────

func TestStart_ProcessesQueueOnReconnect(t *testing.T) {
	f := newFixture(t, false)
	f.enqueue(http.MethodDelete, "/api/products/1", "")

	called := make(chan struct{})
	f.api.EXPECT().
		Do(gomock.Any(), isRequest(http.MethodDelete, "/api/products/1")).
		DoAndReturn(func(context.Context, models.APIRequest) (models.APIResponse, error) {
			close(called)
			return models.APIResponse{StatusCode: http.StatusNoContent}, nil
		})

	f.engine.Start(f.ctx)
	assert.Equal(t, 1, firstValue(t, f.engine.PendingRequestCount))

	f.monitor.set(true)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("queue was not processed on reconnect")
	}
	require.Eventually(t, func() bool { return len(f.pending()) == 0 }, time.Second, 5*time.Millisecond)

	f.engine.Close()
	assert.Zero(t, f.monitor.online.Subscribers())
}

func TestStart_Twice_NoDoubleSubscription(t *testing.T) {
	f := newFixture(t, false)

	f.engine.Start(f.ctx)
	f.engine.Start(f.ctx)
	assert.Equal(t, 1, f.monitor.online.Subscribers())

	f.engine.Close()
	f.engine.Close()
	assert.Zero(t, f.monitor.online.Subscribers())
}

// spyCache is a CacheRefresher counting calls.
type spyCache struct {
	collection string
	reloads    atomic.Int64
	refreshes  atomic.Int64
}

func (c *spyCache) Collection() string { return c.collection }

func (c *spyCache) Reload(context.Context) error {
	c.reloads.Add(1)
	return nil
}

func (c *spyCache) Refresh(context.Context) error {
	c.refreshes.Add(1)
	return nil
}
