package utils

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent identifies the kiosk to the remote API.
const DefaultUserAgent = "kiosk-app"

// HTTPClientOptions configures [NewHTTPClient]. Zero values leave the resty
// defaults in place.
type HTTPClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	AuthToken string
	UserAgent string
}

// HTTPClient is the resty client every call to the remote API goes through.
//
// Automatic retries are always disabled: deferred requests are replayed by
// the sync queue, and a transparent retry of a POST could create the record
// twice.
type HTTPClient struct {
	*resty.Client
}

func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	client := resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if token := strings.TrimSpace(opts.AuthToken); token != "" {
		client.SetAuthToken(token)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeader("User-Agent", userAgent)

	return &HTTPClient{Client: client}
}
