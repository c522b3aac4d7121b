//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/infra/worker"
	"telegram-contest-bot/internal/usecase"
)

func TestBroadcastUseCase(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("should send the message to every registered user", func(t *testing.T) {
		repo := NewMockProfileRepo()
		for _, id := range []int64{101, 102, 103} {
			_ = repo.Register(ctx, nil, &model.Profile{UserID: id})
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = map[int64]string{}
		)
		wg.Add(3)
		bot := &MockTelegramBot{
			SendMessageFunc: func(ctx context.Context, params adapter.SendMessageParams) error {
				mu.Lock()
				seen[params.ChatID] = params.Text
				mu.Unlock()
				wg.Done()
				return nil
			},
		}

		pool := worker.NewPool(2, 4, logger)
		pool.Start(ctx)
		defer pool.Stop()

		uc := usecase.NewBroadcastUseCase(repo, bot, pool, logger)

		count, err := uc.BroadcastMessage(ctx, "Бот перезапущен")
		if err != nil {
			t.Fatalf("BroadcastMessage returned an error: %v", err)
		}
		if count != 3 {
			t.Errorf("expected count 3, but got %d", count)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for broadcast messages to be sent")
		}

		mu.Lock()
		defer mu.Unlock()
		for _, id := range []int64{101, 102, 103} {
			if seen[id] != "Бот перезапущен" {
				t.Errorf("user %d got %q", id, seen[id])
			}
		}
	})

	t.Run("should report zero recipients when nobody registered", func(t *testing.T) {
		pool := worker.NewPool(1, 1, logger)
		pool.Start(ctx)
		defer pool.Stop()

		uc := usecase.NewBroadcastUseCase(NewMockProfileRepo(), &MockTelegramBot{}, pool, logger)
		count, err := uc.BroadcastMessage(ctx, "hi")
		if err != nil || count != 0 {
			t.Fatalf("count=%d err=%v", count, err)
		}
	})
}
