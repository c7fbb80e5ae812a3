package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/utils"
	"github.com/devninja1/kiosk-app/models"
)

// IdempotencyKeyHeader carries the key of a queued request on every attempt.
const IdempotencyKeyHeader = "Idempotency-Key"

type httpRemoteAPI struct {
	client    *utils.HTTPClient
	probePath string

	logger *logger.Logger
}

// NewHTTPRemoteAPI constructs an HTTP/REST implementation of [RemoteAPI].
// It normalises and validates the base URL from adapterCfg.HTTPAddress,
// configures the underlying HTTP client with the resolved base URL and
// request timeout, and attaches appCfg.APIToken as a bearer token when set.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as a
// valid URL.
func NewHTTPRemoteAPI(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (RemoteAPI, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	client := utils.NewHTTPClient(utils.HTTPClientOptions{
		BaseURL:   baseURL,
		Timeout:   adapterCfg.RequestTimeout,
		AuthToken: appCfg.APIToken,
	})

	probePath := adapterCfg.ProbePath
	if probePath == "" {
		probePath = config.DefaultProbePath
	}

	return &httpRemoteAPI{client: client, probePath: probePath, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Do implements [RemoteAPI]. Absolute request URLs are used as-is; relative
// ones are resolved against the base address.
func (h *httpRemoteAPI) Do(ctx context.Context, req models.APIRequest) (models.APIResponse, error) {
	method := strings.ToUpper(req.Method)
	r := h.client.R().SetContext(ctx)

	if len(req.Body) > 0 {
		r.SetHeader("Content-Type", "application/json").
			SetBody([]byte(req.Body))
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.IdempotencyKey != "" {
		r.SetHeader(IdempotencyKeyHeader, req.IdempotencyKey)
	}

	resp, err := r.Execute(method, req.URL)
	if err != nil {
		h.logger.Debug().Err(err).
			Str("method", method).
			Str("url", req.URL).
			Msg("request got no response")
		return models.APIResponse{}, fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, req.URL, err)
	}

	h.logger.Debug().
		Str("method", method).
		Str("url", req.URL).
		Int("status", resp.StatusCode()).
		Msg("request completed")

	if err = mapHTTPError(resp); err != nil {
		return models.APIResponse{}, err
	}

	return models.APIResponse{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

// Ping implements [RemoteAPI]. It issues GET on the configured probe path.
func (h *httpRemoteAPI) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Execute(http.MethodGet, h.probePath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: probe: %w", ErrUnreachable, err)
	}

	h.logger.Debug().Int("status", resp.StatusCode()).Msg("probe answered")
	return nil
}
