package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and answers with its mapped status. Internal errors are
// not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFromError(err)

	log := logger.FromRequest(r)
	if status >= http.StatusInternalServerError {
		log.Err(err).Int("status", status).Msg(msg)
	} else {
		log.Debug().Err(err).Int("status", status).Msg(msg)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = msg
	}
	writeJSON(w, errorResponse{Error: message}, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return nil
}

// pathID parses the {id} path parameter. Negative ids address placeholders.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidQuery, key, raw)
	}
	return v, nil
}

// latest reads the value a fresh subscription delivers first, which is the
// current value of the stream.
func latest[T any](subscribe func() (<-chan T, func())) T {
	ch, release := subscribe()
	defer release()

	select {
	case v := <-ch:
		return v
	default:
		var zero T
		return zero
	}
}
