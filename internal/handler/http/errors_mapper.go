package http

import (
	"errors"
	"net/http"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/internal/service"
	"github.com/devninja1/kiosk-app/internal/store"
)

// errorStatuses is checked in order; the first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{errInvalidID, http.StatusBadRequest},
	{errInvalidJSON, http.StatusBadRequest},
	{errInvalidQuery, http.StatusBadRequest},
	{errFailedRequestNotFound, http.StatusNotFound},

	{service.ErrInvalidRecord, http.StatusBadRequest},
	{service.ErrInvalidRequest, http.StatusBadRequest},
	{service.ErrRecordGone, http.StatusGone},

	{store.ErrRecordNotFound, http.StatusNotFound},
	{store.ErrQueueItemNotFound, http.StatusNotFound},

	// rejections by the remote API are relayed to the front-end
	{adapter.ErrBadRequest, http.StatusUnprocessableEntity},
	{adapter.ErrUnprocessable, http.StatusUnprocessableEntity},
	{adapter.ErrConflict, http.StatusConflict},
	{adapter.ErrNotFound, http.StatusNotFound},
	{adapter.ErrUnauthorized, http.StatusBadGateway},
	{adapter.ErrForbidden, http.StatusBadGateway},
	{adapter.ErrServerError, http.StatusBadGateway},
	{adapter.ErrUnexpectedStatus, http.StatusBadGateway},
	{adapter.ErrUnreachable, http.StatusServiceUnavailable},
}

func statusFromError(err error) int {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}
