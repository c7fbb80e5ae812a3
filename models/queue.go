// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

package models

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Collection names of the durable store.
const (
	CollectionSyncQueue   = "sync-queue"
	CollectionFailedQueue = "failed-sync-queue"
	CollectionCustomers   = "customers"
	CollectionSales       = "sales"
	CollectionProducts    = "products"
	CollectionPurchases   = "purchases"
)

// TempIDField is the payload field correlating a queued creation request
// with the placeholder record created locally.
const TempIDField = "tempId"

// QueuedRequest is a mutation awaiting execution against the remote API.
type QueuedRequest struct {
	// ID is assigned by the durable store. Zero means the request has not
	// been persisted yet.
	ID int64 `json:"id,omitempty"`

	// URL is the target resource address, absolute or relative to the API
	// base address.
	URL string `json:"url"`

	// Method is one of POST, PUT, PATCH or DELETE.
	Method string `json:"method"`

	// Payload is the JSON request body. Creation payloads carry TempIDField.
	Payload json.RawMessage `json:"payload,omitempty"`

	// IdempotencyKey is sent as the Idempotency-Key header on every attempt
	// of this request.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FailedRequest is a queued request that cannot succeed if retried as-is and
// is parked until an operator retries or discards it.
type FailedRequest struct {
	QueuedRequest

	// Error is the human-readable failure message.
	Error string `json:"error"`

	// Timestamp is the time of the failure.
	Timestamp time.Time `json:"timestamp"`
}

// IsMutation reports whether method is one of the methods the sync queue
// accepts.
func IsMutation(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// IsCreation reports whether r is a POST correlated with a placeholder
// record.
func (r QueuedRequest) IsCreation() bool {
	_, ok := r.TempID()
	return ok && strings.EqualFold(r.Method, http.MethodPost)
}

// TempID extracts the tempId correlation value from the payload.
func (r QueuedRequest) TempID() (int64, bool) {
	if len(r.Payload) == 0 {
		return 0, false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(r.Payload, &probe); err != nil {
		return 0, false
	}
	raw, ok := probe[TempIDField]
	if !ok {
		return 0, false
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		var f float64
		if err = json.Unmarshal(raw, &f); err != nil {
			return 0, false
		}
		id = int64(f)
	}
	return id, IsTempID(id)
}

// Failed converts r into a FailedRequest carrying msg.
func (r QueuedRequest) Failed(msg string, at time.Time) FailedRequest {
	return FailedRequest{QueuedRequest: r, Error: msg, Timestamp: at}
}

// Requeue returns the original url, method and payload as a fresh request.
// The idempotency key is dropped: a server remembering the key would replay
// the rejection.
func (f FailedRequest) Requeue() QueuedRequest {
	return QueuedRequest{
		URL:     f.URL,
		Method:  f.Method,
		Payload: f.Payload,
	}
}
