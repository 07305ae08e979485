package notify

import "context"

// Notifier defines the interface for publishing messages to a notification channel.
// This abstraction allows swapping the log sink for a chat integration without refactoring.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}
