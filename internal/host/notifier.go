package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linggen/linggen-editor/internal/state"
)

// Notice levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// NoticeEvent is the SSE event name notices are published under.
const NoticeEvent = "notice"

// Publisher pushes an event to attached clients. The api package's SSE
// broadcaster satisfies it.
type Publisher interface {
	Publish(event string, data interface{})
}

// NoticeStore persists notices. *state.Store satisfies it.
type NoticeStore interface {
	AddNotice(ctx context.Context, n state.Notice) error
}

// Notifier delivers user-facing messages. Every notice is logged, stored
// and broadcast; any sink may be nil.
type Notifier struct {
	pub   Publisher
	store NoticeStore
}

// NewNotifier creates a Notifier. pub and store may be nil.
func NewNotifier(pub Publisher, store NoticeStore) *Notifier {
	return &Notifier{pub: pub, store: store}
}

// Info reports progress or success.
func (n *Notifier) Info(ctx context.Context, format string, args ...interface{}) state.Notice {
	return n.notify(ctx, LevelInfo, fmt.Sprintf(format, args...))
}

// Warn reports a recoverable problem the user should act on.
func (n *Notifier) Warn(ctx context.Context, format string, args ...interface{}) state.Notice {
	return n.notify(ctx, LevelWarn, fmt.Sprintf(format, args...))
}

// Error reports a failed command.
func (n *Notifier) Error(ctx context.Context, format string, args ...interface{}) state.Notice {
	return n.notify(ctx, LevelError, fmt.Sprintf(format, args...))
}

func (n *Notifier) notify(ctx context.Context, level, msg string) state.Notice {
	notice := state.Notice{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}

	switch level {
	case LevelError:
		slog.Error(msg, "notice_id", notice.ID)
	case LevelWarn:
		slog.Warn(msg, "notice_id", notice.ID)
	default:
		slog.Info(msg, "notice_id", notice.ID)
	}

	if n == nil {
		return notice
	}
	if n.store != nil {
		if err := n.store.AddNotice(ctx, notice); err != nil {
			slog.Warn("failed to store notice", "error", err)
		}
	}
	if n.pub != nil {
		n.pub.Publish(NoticeEvent, notice)
	}
	return notice
}
