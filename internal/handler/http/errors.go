package http

import "errors"

var (
	errInvalidID             = errors.New("invalid id in path")
	errInvalidJSON           = errors.New("invalid JSON was passed")
	errInvalidQuery          = errors.New("invalid query parameter")
	errFailedRequestNotFound = errors.New("failed request was not found")
)
