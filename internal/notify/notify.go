// Package notify delivers transient user-facing notices raised by the sync
// core: sync success, stale-conflict deletions and requests queued after a
// failed attempt. Delivery is fire-and-forget.
package notify

import (
	"context"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source=notify.go -destination=../mock/notifier_mock.go -package=mock

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a single user-facing message.
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows notices to the user. Implementations must not block the
// caller for long and never report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// LogNotifier writes notices to the structured log. It is the default when
// no UI is attached.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(logger *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notice Notice) {
	n.logger.WithLevel(zerologLevel(notice.Level)).
		Str("notice", string(notice.Level)).
		Msg(notice.Message)
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Func adapts a plain function to [Notifier].
type Func func(ctx context.Context, notice Notice)

func (f Func) Notify(ctx context.Context, notice Notice) {
	f(ctx, notice)
}
