// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

// Package adapter provides the transport layer between the kiosk runtime and
// the remote point-of-sale API.
//
// The primary abstraction is [RemoteAPI], which decouples the sync engine and
// the record services from the underlying protocol. The package ships an
// HTTP/REST implementation built on resty ([NewHTTPRemoteAPI]).
//
// Transport failures (no response received at all) are reported as
// [ErrUnreachable]. Every non-2xx response is reported as a [*StatusError]
// that unwraps to a status sentinel from errors.go, so callers can use
// [errors.Is] for transport-agnostic handling (e.g. [ErrNotFound] for 404,
// [ErrServerError] for any 5xx).
package adapter

import (
	"context"

	"github.com/devninja1/kiosk-app/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_api_mock.go -package=mock

// RemoteAPI defines transport-agnostic communication with the remote API.
// Implementations are responsible for serialisation, authentication header
// management, and mapping transport-level failures to the sentinel values
// defined in this package.
type RemoteAPI interface {
	// Do executes req against the API. A 2xx response is returned as
	// [models.APIResponse]. Any other status yields a [*StatusError]; a
	// request that received no response at all yields an error wrapping
	// [ErrUnreachable].
	Do(ctx context.Context, req models.APIRequest) (models.APIResponse, error)

	// Ping issues a lightweight read-only probe. Any HTTP response,
	// including client and server error statuses, counts as reachable and
	// returns nil. Only a transport failure returns an error wrapping
	// [ErrUnreachable].
	Ping(ctx context.Context) error
}
