// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/observable"
	"golang.org/x/sync/singleflight"
)

const probeKey = "probe"

// Monitor publishes the reachability of the remote API as a de-duplicated
// stream and a synchronous snapshot.
type Monitor struct {
	prober   Prober
	watcher  InterfaceWatcher
	interval time.Duration

	online *observable.Subject[bool]
	probes singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logger.Logger
}

// NewMonitor creates a Monitor that starts out offline. Call Start to begin
// probing.
func NewMonitor(prober Prober, watcher InterfaceWatcher, interval time.Duration, logger *logger.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		watcher:  watcher,
		interval: interval,
		online:   observable.NewDistinct(false),
		logger:   logger,
	}
}

// IsOnline subscribes to reachability changes. The current state is
// delivered first; later values arrive only on change. The returned func
// releases the subscription.
func (m *Monitor) IsOnline() (<-chan bool, func()) {
	return m.online.Subscribe()
}

// IsOnlineNow returns the last known reachability.
func (m *Monitor) IsOnlineNow() bool {
	return m.online.Get()
}

// CheckNow forces a reachability probe, updates the state and returns it.
// Concurrent callers share a single probe. When the local interface is down
// no probe is sent. A cancelled ctx leaves the state unchanged.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	if !m.watcher.Available() {
		m.set(false)
		return false
	}

	ch := m.probes.DoChan(probeKey, func() (any, error) {
		return m.prober.Ping(context.WithoutCancel(ctx)), nil
	})

	select {
	case <-ctx.Done():
		return m.IsOnlineNow()
	case res := <-ch:
		probeErr, _ := res.Val.(error)
		if probeErr != nil {
			m.logger.Debug().Err(probeErr).Msg("reachability probe failed")
		}
		m.set(probeErr == nil)
		return probeErr == nil
	}
}

func (m *Monitor) set(online bool) {
	if m.online.Set(online) {
		m.logger.Info().Bool("online", online).Msg("connectivity changed")
	}
}

// Start launches the monitoring loop. It is a no-op when already running.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	events := m.watcher.Watch(ctx)
	ticker := time.NewTicker(m.interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// the watcher closes events once ctx is done
				if events != nil {
					for range events {
					}
				}
				return
			case up, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if up {
					m.CheckNow(ctx)
				} else {
					m.set(false)
				}
			case <-ticker.C:
				m.CheckNow(ctx)
			}
		}
	}()
}

// Stop terminates the monitoring loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}
