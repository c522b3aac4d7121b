package usecase

import (
	"context"
	"time"

	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/metrics"
	"telegram-contest-bot/internal/infra/worker"

	"github.com/rs/zerolog"
)

type BroadcastUseCase interface {
	// BroadcastMessage queues text for every registered user and returns the
	// recipient count. Delivery continues in the background.
	BroadcastMessage(ctx context.Context, text string) (int, error)
}

type broadcastUC struct {
	profiles   repository.ProfileRepository
	bot        adapter.TelegramBotAdapter
	workerPool *worker.Pool
	interval   time.Duration
	log        *zerolog.Logger
}

func NewBroadcastUseCase(
	profiles repository.ProfileRepository,
	bot adapter.TelegramBotAdapter,
	pool *worker.Pool,
	logger *zerolog.Logger,
) BroadcastUseCase {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "broadcast").Logger()
	return &broadcastUC{
		profiles:   profiles,
		bot:        bot,
		workerPool: pool,
		// Telegram allows roughly 30 messages per second
		interval: time.Second / 25,
		log:      &l,
	}
}

func (uc *broadcastUC) BroadcastMessage(ctx context.Context, text string) (int, error) {
	ids, err := uc.profiles.ListUserIDs(ctx, repository.NoTX)
	if err != nil {
		uc.log.Error().Err(err).Msg("list users for broadcast")
		metrics.IncJob("broadcast", "error")
		return 0, err
	}

	go func() {
		throttle := time.NewTicker(uc.interval)
		defer throttle.Stop()
		uc.log.Info().Int("user_count", len(ids)).Msg("broadcast started")

		for _, id := range ids {
			select {
			case <-ctx.Done():
				uc.log.Warn().Err(ctx.Err()).Msg("broadcast interrupted")
				metrics.IncJob("broadcast", "cancelled")
				return
			case <-throttle.C:
			}
			if err := uc.workerPool.Submit(uc.sendTask(id, text)); err != nil {
				uc.log.Warn().Err(err).Int64("tg_id", id).Msg("queue broadcast message")
			}
		}
		uc.log.Info().Msg("broadcast queued")
		metrics.IncJob("broadcast", "ok")
	}()

	return len(ids), nil
}

func (uc *broadcastUC) sendTask(chatID int64, text string) worker.Task {
	return func(ctx context.Context) error {
		err := uc.bot.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: text})
		if err != nil {
			// usually the user blocked the bot
			uc.log.Warn().Err(err).Int64("tg_id", chatID).Msg("broadcast message not delivered")
		}
		return nil
	}
}
