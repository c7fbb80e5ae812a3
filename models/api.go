package models

import "encoding/json"

// APIRequest describes a single call against the remote API.
type APIRequest struct {
	Method string
	URL    string
	Body   json.RawMessage
	// Query holds optional query string parameters.
	Query map[string]string
	// IdempotencyKey, when set, is sent as the Idempotency-Key header.
	IdempotencyKey string
}

// APIResponse is a 2xx response of the remote API.
type APIResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// PageRequest selects one page of a paginated collection.
type PageRequest struct {
	// Page is 1-based.
	Page     int
	PageSize int
	// Search filters records by a case-insensitive substring.
	Search string
}

// Page is one page of a paginated collection.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
