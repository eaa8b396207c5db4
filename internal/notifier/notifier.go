// Package notifier
package notifier

import "context"

// Notifier interface for sending notifications (e.g., Telegram).
type Notifier interface {
	Send(ctx context.Context, msg string) error
	SendWithRetry(ctx context.Context, msg string) error
}

// Noop discards every message. It is used when no notification channel is configured.
type Noop struct{}

func (Noop) Send(context.Context, string) error          { return nil }
func (Noop) SendWithRetry(context.Context, string) error { return nil }
