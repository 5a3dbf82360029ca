// Package notify delivers best-effort push notifications to the user's
// registered device. Delivery is never load-bearing: callers swallow every
// error, and an empty token is a silent no-op.
package notify

import "context"

// Notifier sends a push notification to a device token.
type Notifier interface {
	// Send pushes title/body to the device. An empty token is a no-op.
	// Returned errors exist for logging only; callers must not propagate them.
	Send(ctx context.Context, token, title, body string) error
}

// Noop is a Notifier that does nothing. Used when push is not configured.
type Noop struct{}

// Send discards the notification.
func (Noop) Send(ctx context.Context, token, title, body string) error {
	return nil
}
