// Package utils provides small helpers shared across the kiosk runtime: the
// resty client wrapper used by the API adapter and the id generator used for
// idempotency keys.
package utils
