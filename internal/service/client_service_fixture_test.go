package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/mock"
	"github.com/devninja1/kiosk-app/internal/notify"
	"github.com/devninja1/kiosk-app/internal/observable"
	"github.com/devninja1/kiosk-app/internal/store"
	"github.com/devninja1/kiosk-app/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeMonitor is a connectivity monitor switched by the test.
type fakeMonitor struct {
	online *observable.Subject[bool]
	checks atomic.Int64
}

func newFakeMonitor(online bool) *fakeMonitor {
	return &fakeMonitor{online: observable.NewDistinct(online)}
}

func (m *fakeMonitor) IsOnline() (<-chan bool, func()) { return m.online.Subscribe() }

func (m *fakeMonitor) IsOnlineNow() bool { return m.online.Get() }

func (m *fakeMonitor) CheckNow(context.Context) bool {
	m.checks.Add(1)
	return m.online.Get()
}

func (m *fakeMonitor) set(online bool) { m.online.Set(online) }

// recordingNotifier keeps every notice.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice notify.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) count(level notify.Level) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	var c int
	for _, notice := range n.notices {
		if notice.Level == level {
			c++
		}
	}
	return c
}

// seqIDs hands out predictable idempotency keys.
type seqIDs struct {
	n atomic.Int64
}

func (s *seqIDs) Generate() string {
	return fmt.Sprintf("key-%d", s.n.Add(1))
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	storages *store.ClientStorages
	api      *mock.MockRemoteAPI
	monitor  *fakeMonitor
	notifier *recordingNotifier
	engine   *syncEngine
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()

	cfg := config.ClientStorage{DB: config.ClientDB{DSN: filepath.Join(t.TempDir(), "kiosk.db")}}
	storages, err := store.NewClientStorages(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storages.Close() })

	ctrl := gomock.NewController(t)
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		storages: storages,
		api:      mock.NewMockRemoteAPI(ctrl),
		monitor:  newFakeMonitor(online),
		notifier: &recordingNotifier{},
	}

	f.engine = NewSyncEngine(storages, f.api, f.monitor, f.notifier, 500, logger.Nop()).(*syncEngine)
	f.engine.ids = &seqIDs{}
	f.engine.now = func() time.Time { return fixedNow }
	t.Cleanup(f.engine.Close)

	return f
}

func (f *fixture) deps() RecordServiceDeps {
	return RecordServiceDeps{
		Engine:  f.engine,
		Records: f.storages.Records,
		API:     f.api,
		Monitor: f.monitor,
		IDs:     f.engine.ids,
		Logger:  logger.Nop(),
	}
}

func (f *fixture) pending() []models.QueuedRequest {
	f.t.Helper()
	items, err := f.storages.Queue.GetAll(f.ctx)
	require.NoError(f.t, err)
	return items
}

func (f *fixture) failed() []models.FailedRequest {
	f.t.Helper()
	items, err := f.storages.FailedQueue.GetAll(f.ctx)
	require.NoError(f.t, err)
	return items
}

// enqueue stores req in the pending collection directly.
func (f *fixture) enqueue(method, url, payload string) models.QueuedRequest {
	f.t.Helper()
	req := models.QueuedRequest{Method: method, URL: url, IdempotencyKey: "k-" + url, CreatedAt: fixedNow}
	if payload != "" {
		req.Payload = json.RawMessage(payload)
	}
	stored, err := f.storages.Queue.Add(f.ctx, req)
	require.NoError(f.t, err)
	return stored
}

func (f *fixture) putRecord(collection string, id int64, v any) {
	f.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(f.t, err)
	require.NoError(f.t, f.storages.Records.Put(f.ctx, collection, models.StoredRecord{ID: id, Data: data}))
}

func (f *fixture) hasRecord(collection string, id int64) bool {
	f.t.Helper()
	_, err := f.storages.Records.GetByKey(f.ctx, collection, id)
	if err != nil {
		require.ErrorIs(f.t, err, store.ErrRecordNotFound)
		return false
	}
	return true
}

// apiRequestMatcher matches a models.APIRequest by method and URL.
type apiRequestMatcher struct {
	method string
	url    string
}

func isRequest(method, url string) gomock.Matcher {
	return apiRequestMatcher{method: method, url: url}
}

func (m apiRequestMatcher) Matches(x any) bool {
	req, ok := x.(models.APIRequest)
	return ok && req.Method == m.method && req.URL == m.url
}

func (m apiRequestMatcher) String() string {
	return m.method + " " + m.url
}

func jsonResponse(body string) models.APIResponse {
	return models.APIResponse{StatusCode: http.StatusOK, Body: json.RawMessage(body)}
}

func statusErr(code int, msg string) error {
	return &adapter.StatusError{StatusCode: code, Message: msg}
}

func unreachable() error {
	return fmt.Errorf("%w: dial tcp: connection refused", adapter.ErrUnreachable)
}

// firstValue reads the value a fresh subscription delivers.
func firstValue[T any](t *testing.T, subscribe func() (<-chan T, func())) T {
	t.Helper()
	ch, cancel := subscribe()
	defer cancel()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("no value delivered")
	}
	var zero T
	return zero
}
