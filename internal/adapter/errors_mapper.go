package adapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := resp.Body()
	return &StatusError{
		StatusCode: resp.StatusCode(),
		Message:    errorMessage(resp.StatusCode(), body),
		Body:       body,
	}
}

// errorMessage prefers the "message" or "error" field of a JSON body, then
// the raw body text, then the status text.
func errorMessage(code int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(code)
}
