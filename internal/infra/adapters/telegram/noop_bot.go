package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"leetcode-reminder/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs notifications instead of sending them. Used for dry runs.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("user_id", userID).Str("text", text).Msg("notification (dry run)")
	return nil
}
