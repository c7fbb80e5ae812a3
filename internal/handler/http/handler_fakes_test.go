package http

import (
	"context"
	"fmt"
	"sync"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/observable"
	"github.com/devninja1/kiosk-app/internal/service"
	"github.com/devninja1/kiosk-app/internal/store"
	"github.com/devninja1/kiosk-app/models"
	"github.com/go-chi/chi/v5"
)

// fakeRecords serves a fixed collection. Calls to methods it does not
// override panic through the nil embedded interface.
type fakeRecords[T models.Record[T]] struct {
	service.RecordService[T]

	mu      sync.Mutex
	items   []T
	err     error
	created T
	updated []T
	deleted []int64
}

func (f *fakeRecords[T]) All() []T { return f.items }

func (f *fakeRecords[T]) Get(_ context.Context, id int64) (T, error) {
	for _, item := range f.items {
		if item.RecordID() == id {
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %d", store.ErrRecordNotFound, id)
}

func (f *fakeRecords[T]) Create(_ context.Context, record T) (T, error) {
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	f.created = record
	return record.WithID(f.nextID()), nil
}

func (f *fakeRecords[T]) Update(_ context.Context, record T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	f.updated = append(f.updated, record)
	return record, nil
}

func (f *fakeRecords[T]) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// nextID is the id Create assigns: the id of the first item, or 1.
func (f *fakeRecords[T]) nextID() int64 {
	if len(f.items) > 0 {
		return f.items[0].RecordID()
	}
	return 1
}

type fakeSales struct {
	*fakeRecords[models.Sale]

	page    models.Page[models.Sale]
	pageErr error
	lastReq models.PageRequest
}

func (f *fakeSales) FetchPage(_ context.Context, req models.PageRequest) (models.Page[models.Sale], error) {
	f.lastReq = req
	return f.page, f.pageErr
}

type fakeEngine struct {
	service.SyncEngine

	online  *observable.Subject[bool]
	pending *observable.Subject[[]models.QueuedRequest]
	failed  *observable.Subject[[]models.FailedRequest]
	count   *observable.Subject[int]

	mu       sync.Mutex
	runs     int
	retried  []models.FailedRequest
	retryAll int
	deleted  []int64
	err      error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		online:  observable.NewDistinct(false),
		pending: observable.New[[]models.QueuedRequest](nil),
		failed:  observable.New[[]models.FailedRequest](nil),
		count:   observable.NewDistinct(0),
	}
}

func (e *fakeEngine) IsOnline() (<-chan bool, func()) { return e.online.Subscribe() }

func (e *fakeEngine) PendingRequests() (<-chan []models.QueuedRequest, func()) {
	return e.pending.Subscribe()
}

func (e *fakeEngine) FailedRequests() (<-chan []models.FailedRequest, func()) {
	return e.failed.Subscribe()
}

func (e *fakeEngine) PendingRequestCount() (<-chan int, func()) { return e.count.Subscribe() }

func (e *fakeEngine) ProcessQueue(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs++
}

func (e *fakeEngine) RetryFailedRequest(_ context.Context, item models.FailedRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retried = append(e.retried, item)
	return e.err
}

func (e *fakeEngine) RetryAllFailedRequests(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retryAll++
	return e.err
}

func (e *fakeEngine) DeleteFailedRequest(_ context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.deleted = append(e.deleted, id)
	return nil
}

type testAPI struct {
	engine    *fakeEngine
	customers *fakeRecords[models.Customer]
	products  *fakeRecords[models.Product]
	sales     *fakeSales
	router    *chi.Mux
}

func newTestAPI() *testAPI {
	api := &testAPI{
		engine:    newFakeEngine(),
		customers: &fakeRecords[models.Customer]{},
		products:  &fakeRecords[models.Product]{},
		sales:     &fakeSales{fakeRecords: &fakeRecords[models.Sale]{}},
	}

	h := NewHandler(&service.ClientServices{
		SyncEngine: api.engine,
		Customers:  api.customers,
		Products:   api.products,
		Sales:      api.sales,
	}, models.NewAppBuildInfo("1.2.0", "2026-03-01", "abc123"), logger.Nop())
	api.router = h.Init()

	return api
}
