package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier implements Notifier by writing each message to the logger.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Publish(ctx context.Context, message string) error {
	n.log.Info().Str("message", message).Msg("notification published")
	return nil
}
