package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-contest-bot/internal/pager"

	"github.com/go-redis/redis/v8"
)

var _ pager.CursorStore = (*CursorStore)(nil)

// CursorStore keeps pager cursors. Keys outlive the cursor TTL so the pager,
// not Redis, decides when a cursor is stale.
type CursorStore struct {
	client RedisClient
	keep   time.Duration
}

func NewCursorStore(client RedisClient, ttl time.Duration) *CursorStore {
	if ttl <= 0 {
		ttl = pager.DefaultCursorTTL
	}
	return &CursorStore{client: client, keep: 2 * ttl}
}

func (s *CursorStore) key(userID int64, kind pager.Kind) string {
	return fmt.Sprintf("cursor:%d:%s", userID, kind)
}

func (s *CursorStore) Get(ctx context.Context, userID int64, kind pager.Kind) (pager.Cursor, bool, error) {
	data, err := s.client.Get(ctx, s.key(userID, kind))
	if errors.Is(err, redis.Nil) {
		return pager.Cursor{}, false, nil
	}
	if err != nil {
		return pager.Cursor{}, false, err
	}
	var c pager.Cursor
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return pager.Cursor{}, false, fmt.Errorf("decode cursor: %w", err)
	}
	return c, true, nil
}

func (s *CursorStore) Put(ctx context.Context, userID int64, kind pager.Kind, c pager.Cursor) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID, kind), data, s.keep)
}

func (s *CursorStore) Delete(ctx context.Context, userID int64, kind pager.Kind) error {
	return s.client.Del(ctx, s.key(userID, kind))
}
