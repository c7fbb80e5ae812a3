// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package client

import "context"

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run starts the client application and blocks until ctx is done.
	Run(ctx context.Context) error
}

var _ Client = (*App)(nil)
