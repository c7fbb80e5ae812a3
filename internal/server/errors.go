// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package server

import "errors"

var (
	// ErrListen wraps failures to bind the listen address.
	ErrListen = errors.New("failed to listen")
)
