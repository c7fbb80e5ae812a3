// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kiosk App Authors

// Package logger provides a thin wrapper around zerolog.Logger shared by the
// kiosk runtime.
//
// The Logger type embeds zerolog.Logger so all standard zerolog methods
// (Debug, Info, Warn, Error, Fatal, etc.) are available directly on *Logger.
// Components receive *Logger by pointer; store repositories pick the
// operation-scoped logger from the context via FromContext.
package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// NewLogger constructs a JSON *Logger writing to os.Stdout, tagged with the
// given role label (e.g. "kiosk", "sync-worker").
//
// Every entry carries a "role" field, a timestamp and a "func" caller field
// holding the fully-qualified function name.
func NewLogger(role string) *Logger {
	return newLogger(os.Stdout, role)
}

// NewFileLogger constructs a *Logger that appends to the file at path. The
// parent directory is created when missing. When path is empty or the file
// cannot be opened, it falls back to os.Stdout.
func NewFileLogger(role, path string) *Logger {
	if path == "" {
		return NewLogger(role)
	}

	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	var out io.Writer = os.Stdout
	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		out = logFile
	}

	return newLogger(out, role)
}

func newLogger(out io.Writer, role string) *Logger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	logger := zerolog.New(out).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{logger}
}

// Nop returns a *Logger that discards all log output. Used in tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// GetChildLogger returns a new *Logger that inherits all fields of the
// receiver and can be enriched without affecting the parent.
func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// WithContext attaches l to ctx so that FromContext returns it downstream.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext extracts the zerolog.Logger stored in ctx and returns it as a
// *Logger. When nothing was attached zerolog falls back to its default
// logger, so the result is never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}

// FromRequest returns the logger attached to the request context by the
// local API middleware.
func FromRequest(r *http.Request) *Logger {
	return FromContext(r.Context())
}
