package telegram

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/infra/logging"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs messages instead of sending them. Used when no bot
// token is usable (local runs, broadcast dry runs).
type NoopBotAdapter struct {
	log *zerolog.Logger

	mu   sync.Mutex
	sent int
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &NoopBotAdapter{log: logging.Component(logger, "noop_telegram")}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.sent++
	b.mu.Unlock()

	ev := logging.With(ctx, b.log).Info().
		Int64("chat_id", params.ChatID).
		Str("text", params.Text)
	if params.EditMessageID != 0 {
		ev = ev.Int("edit_message_id", params.EditMessageID)
	}
	if params.ReplyMarkup != nil {
		ev = ev.Int("keyboard_rows", len(params.ReplyMarkup.Buttons)).Bool("inline", params.ReplyMarkup.IsInline)
	}
	ev.Msg("send")
	return nil
}

func (b *NoopBotAdapter) SetMyCommands(ctx context.Context, commands map[string]string) error {
	logging.With(ctx, b.log).Info().Int("count", len(commands)).Msg("set commands")
	return nil
}

// Sent reports how many messages were logged.
func (b *NoopBotAdapter) Sent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent
}
