// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

// Package connectivity tracks whether the remote API is reachable.
//
// Reachability is not local network presence: a [Monitor] actively probes the
// API whenever the local interface comes up and on every poll interval while
// it stays up. Any HTTP response proves reachability; only a transport
// failure marks the API unreachable. When the interface is down the monitor
// reports offline without probing.
package connectivity

import "context"

// Prober issues a lightweight read-only request against the API. It returns
// nil whenever any response was received.
type Prober interface {
	Ping(ctx context.Context) error
}

// InterfaceWatcher reports local network interface presence.
type InterfaceWatcher interface {
	// Available reports whether a usable interface is present right now.
	Available() bool

	// Watch emits the current availability immediately and then every
	// change. The channel is closed once ctx is done.
	Watch(ctx context.Context) <-chan bool
}
