//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/repository"
	red "telegram-contest-bot/internal/infra/redis"

	"github.com/go-redis/redis/v8"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerCatalogRepo mocks the database repository the catalog decorator wraps.
type mockInnerCatalogRepo struct {
	repository.CatalogRepository

	ThemesByCategoryCalls int
	ThemeByIDCalls        int

	ThemesByCategoryFunc func(ctx context.Context, tx repository.Tx, categoryID int) ([]*model.Theme, error)
	ThemeByIDFunc        func(ctx context.Context, tx repository.Tx, id int) (*model.Theme, error)
	CreateThemeFunc      func(ctx context.Context, tx repository.Tx, t *model.Theme) (int, error)
}

func (m *mockInnerCatalogRepo) ThemesByCategory(ctx context.Context, tx repository.Tx, categoryID int) ([]*model.Theme, error) {
	m.ThemesByCategoryCalls++
	return m.ThemesByCategoryFunc(ctx, tx, categoryID)
}

func (m *mockInnerCatalogRepo) ThemeByID(ctx context.Context, tx repository.Tx, id int) (*model.Theme, error) {
	m.ThemeByIDCalls++
	return m.ThemeByIDFunc(ctx, tx, id)
}

func (m *mockInnerCatalogRepo) CreateTheme(ctx context.Context, tx repository.Tx, t *model.Theme) (int, error) {
	return m.CreateThemeFunc(ctx, tx, t)
}

// mockRedisClient is an in-memory red.RedisClient with overridable hooks.
type mockRedisClient struct {
	data map[string]string

	GetFunc func(ctx context.Context, key string) (string, error)
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func newMockRedisClient() *mockRedisClient { return &mockRedisClient{data: map[string]string{}} }

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }
