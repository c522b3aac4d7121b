package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"

	"github.com/go-redis/redis/v8"
)

var _ conversation.SessionStore = (*SessionStore)(nil)

// SessionStore keeps conversation sessions as JSON documents without expiry.
// A session is only ever reset by the conversation, never dropped.
type SessionStore struct {
	client RedisClient
}

func NewSessionStore(client RedisClient) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) key(userID int64) string {
	return fmt.Sprintf("conv_session:%d", userID)
}

func (s *SessionStore) Load(ctx context.Context, userID int64) (*conversation.Session, error) {
	data, err := s.client.Get(ctx, s.key(userID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", userID, err)
	}

	var sess conversation.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decode session %d: %w", userID, err)
	}
	sess.UserID = userID
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *conversation.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.UserID), data, 0)
}
