// Package logsink is a development Notifier that writes messages to a
// logger instead of sending them.
package logsink

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/sessionkit"
)

// Sink logs every message at info level.
type Sink struct {
	logger   *slog.Logger
	showBody bool
}

var _ sessionkit.Notifier = (*Sink)(nil)

// New returns a Sink. Message bodies carry verification links and recovery
// passwords, so they are only logged when showBody is set.
func New(logger *slog.Logger, showBody bool) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger, showBody: showBody}
}

func (s *Sink) Send(ctx context.Context, msg sessionkit.Message) error {
	attrs := []any{
		"receiver", msg.Receiver,
		"subject", msg.Subject,
	}
	if s.showBody {
		attrs = append(attrs, "text", msg.Text)
	} else {
		attrs = append(attrs, "text_bytes", len(msg.Text))
	}
	s.logger.InfoContext(ctx, "outbound mail", attrs...)
	return nil
}
