// Package notify delivers cart notifications to the log, to RabbitMQ, or to
// several sinks at once.
package notify

import (
	"context"
	"log/slog"

	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/port"
)

// LogNotifier writes every notification as one structured log record.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With("component", "notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	n.log.Log(ctx, levelOf(note.Level), note.Message,
		"kind", note.Kind,
		"session_id", note.SessionID,
		"cart_id", note.CartID,
		"ticket_id", note.TicketID,
		"quantity", note.Quantity,
		"count", note.Count,
	)
}

func levelOf(l domain.Level) slog.Level {
	switch l {
	case domain.LevelError:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Fanout forwards each notification to every sink in order.
type Fanout []port.Notifier

func (f Fanout) Notify(ctx context.Context, n domain.Notification) {
	for _, sink := range f {
		sink.Notify(ctx, n)
	}
}
