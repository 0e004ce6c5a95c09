// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// Notifier delivers a plain text message to a user. Failures are reported, never retried by callers.
type Notifier interface {
	SendMessage(ctx context.Context, userID int64, text string) error
}
