package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/devninja1/kiosk-app/internal/adapter"
)

// outcome is the classification of one attempt to execute a queued request.
type outcome int

const (
	// outcomeSucceeded: the request is done and leaves the pending
	// collection.
	outcomeSucceeded outcome = iota
	// outcomeAbort: no response or a 5xx. The run stops and the request
	// stays queued with everything behind it.
	outcomeAbort
	// outcomeStale: a 404 while changing a record that the server deleted.
	outcomeStale
	// outcomeFailed: the request cannot succeed as written.
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeSucceeded:
		return "succeeded"
	case outcomeAbort:
		return "abort"
	case outcomeStale:
		return "stale"
	case outcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// classifyOutcome maps the result of executing a request with method to what
// the queue does with it.
func classifyOutcome(method string, err error) outcome {
	switch {
	case err == nil:
		return outcomeSucceeded
	case errors.Is(err, adapter.ErrUnreachable), errors.Is(err, adapter.ErrServerError):
		return outcomeAbort
	case errors.Is(err, adapter.ErrNotFound) && changesExisting(method):
		return outcomeStale
	default:
		return outcomeFailed
	}
}

func changesExisting(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func failureMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
