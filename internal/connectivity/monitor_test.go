// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errNoRoute = errors.New("dial tcp: no route to host")

type fakeProber struct {
	calls atomic.Int32
	mu    sync.Mutex
	err   error
	gate  chan struct{}
}

func (p *fakeProber) Ping(ctx context.Context) error {
	p.calls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

type fakeWatcher struct {
	available atomic.Bool
	in        chan bool
}

func newFakeWatcher(available bool) *fakeWatcher {
	w := &fakeWatcher{in: make(chan bool)}
	w.available.Store(available)
	return w
}

func (w *fakeWatcher) Available() bool { return w.available.Load() }

func (w *fakeWatcher) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-w.in:
				w.available.Store(v)
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func drain(ch <-chan bool) []bool {
	var got []bool
	for {
		select {
		case v := <-ch:
			got = append(got, v)
		case <-time.After(50 * time.Millisecond):
			return got
		}
	}
}

func TestCheckNow_InterfaceDownSkipsProbe(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, newFakeWatcher(false), time.Hour, logger.Nop())

	assert.False(t, m.CheckNow(context.Background()))
	assert.Zero(t, p.calls.Load())
	assert.False(t, m.IsOnlineNow())
}

func TestCheckNow_AnyResponseIsOnline(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, newFakeWatcher(true), time.Hour, logger.Nop())

	assert.True(t, m.CheckNow(context.Background()))
	assert.True(t, m.IsOnlineNow())

	p.setErr(errNoRoute)
	assert.False(t, m.CheckNow(context.Background()))
	assert.False(t, m.IsOnlineNow())
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCheckNow_ConcurrentCallersShareProbe(t *testing.T) {
	p := &fakeProber{gate: make(chan struct{})}
	m := NewMonitor(p, newFakeWatcher(true), time.Hour, logger.Nop())

	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.CheckNow(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, []bool{true, true, true, true, true}, results)
}

func TestCheckNow_CancelledKeepsState(t *testing.T) {
	p := &fakeProber{gate: make(chan struct{})}
	m := NewMonitor(p, newFakeWatcher(true), time.Hour, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, m.CheckNow(ctx))
	close(p.gate)
	// let the shared probe finish before leak verification
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestIsOnline_EmitsOnlyOnChange(t *testing.T) {
	p := &fakeProber{}
	m := NewMonitor(p, newFakeWatcher(true), time.Hour, logger.Nop())

	ch, cancel := m.IsOnline()
	defer cancel()
	assert.Equal(t, []bool{false}, drain(ch))

	m.CheckNow(context.Background())
	m.CheckNow(context.Background())
	m.CheckNow(context.Background())
	assert.Equal(t, []bool{true}, drain(ch))

	p.setErr(errNoRoute)
	m.CheckNow(context.Background())
	m.CheckNow(context.Background())
	assert.Equal(t, []bool{false}, drain(ch))
}

func TestStart_InterfaceEventsDriveState(t *testing.T) {
	p := &fakeProber{}
	w := newFakeWatcher(false)
	m := NewMonitor(p, w, time.Hour, logger.Nop())

	m.Start(context.Background())
	defer m.Stop()

	w.in <- true
	require.Eventually(t, m.IsOnlineNow, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), p.calls.Load())

	w.in <- false
	require.Eventually(t, func() bool { return !m.IsOnlineNow() }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestStart_PollsWhileInterfaceUp(t *testing.T) {
	p := &fakeProber{}
	p.setErr(errNoRoute)
	m := NewMonitor(p, newFakeWatcher(true), 5*time.Millisecond, logger.Nop())

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, time.Millisecond)
	assert.False(t, m.IsOnlineNow())

	p.setErr(nil)
	require.Eventually(t, m.IsOnlineNow, time.Second, time.Millisecond)
}

func TestStartStop_Idempotent(t *testing.T) {
	m := NewMonitor(&fakeProber{}, newFakeWatcher(false), time.Hour, logger.Nop())

	m.Stop()
	m.Start(context.Background())
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	m := NewMonitor(&fakeProber{}, newFakeWatcher(false), time.Hour, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
