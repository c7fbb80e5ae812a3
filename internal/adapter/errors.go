package adapter

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnreachable reports that no response was received at all.
	ErrUnreachable = errors.New("remote api unreachable")

	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("client unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrUnprocessable    = errors.New("unprocessable entity")
	ErrServerError      = errors.New("server error")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// StatusError is returned for every non-2xx response. It unwraps to the
// sentinel matching its status code.
type StatusError struct {
	StatusCode int
	// Message is the server-provided message, or the status text when the
	// body carries none.
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return statusSentinel(e.StatusCode)
}

func statusSentinel(code int) error {
	switch {
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusUnprocessableEntity:
		return ErrUnprocessable
	case code >= http.StatusInternalServerError && code <= 599:
		return ErrServerError
	default:
		return ErrUnexpectedStatus
	}
}

// StatusCode returns the HTTP status carried by err, or 0 when err holds no
// response status.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
