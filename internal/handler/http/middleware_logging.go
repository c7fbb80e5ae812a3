package http

import (
	"net/http"
	"time"

	"github.com/devninja1/kiosk-app/internal/logger"
)

func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(lw, r)

		logger.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", lw.status).
			Dur("duration", time.Since(start)).
			Int("size", lw.size).
			Msg("local api request")
	})
}
