package service

import "errors"

var (
	// ErrRecordGone is returned by an update whose target no longer exists
	// on the server. The local copy has been removed.
	ErrRecordGone = errors.New("record was deleted on the server")

	ErrInvalidRecord  = errors.New("invalid record")
	ErrInvalidRequest = errors.New("invalid queued request")

	// ErrMissingQueueID marks a stored request read back without an id.
	ErrMissingQueueID = errors.New("queued request has no id")

	ErrNoCreatedID = errors.New("server response carries no record id")
)
