package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/metrics"
	red "telegram-contest-bot/internal/infra/redis"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var _ repository.CatalogRepository = (*catalogRepoCacheDecorator)(nil)

// catalogRepoCacheDecorator caches theme reads, which every theme page and
// its lookahead hit. Materials and news pass straight through.
type catalogRepoCacheDecorator struct {
	repository.CatalogRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewCatalogRepoCacheDecorator(inner repository.CatalogRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.CatalogRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &catalogRepoCacheDecorator{CatalogRepository: inner, cache: cache, ttl: ttl, log: logger}
}

func categoryKey(id int) string { return fmt.Sprintf("themes:category:%d", id) }
func themeKey(id int) string    { return fmt.Sprintf("theme:%d", id) }

func (d *catalogRepoCacheDecorator) lookup(ctx context.Context, cache, key string, dst any) bool {
	val, err := d.cache.Get(ctx, key)
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.IncCacheRequest(cache, "hit")
		return true
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	metrics.IncCacheRequest(cache, "miss")
	return false
}

func (d *catalogRepoCacheDecorator) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}

func (d *catalogRepoCacheDecorator) ThemesByCategory(ctx context.Context, tx repository.Tx, categoryID int) ([]*model.Theme, error) {
	key := categoryKey(categoryID)
	var themes []*model.Theme
	if d.lookup(ctx, "themes", key, &themes) {
		return themes, nil
	}
	themes, err := d.CatalogRepository.ThemesByCategory(ctx, tx, categoryID)
	if err != nil {
		return nil, err
	}
	// empty categories are not cached so new themes show up at once
	if len(themes) > 0 {
		d.store(ctx, key, themes)
	}
	return themes, nil
}

func (d *catalogRepoCacheDecorator) ThemeByID(ctx context.Context, tx repository.Tx, id int) (*model.Theme, error) {
	key := themeKey(id)
	var t model.Theme
	if d.lookup(ctx, "theme", key, &t) {
		return &t, nil
	}
	th, err := d.CatalogRepository.ThemeByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, th)
	return th, nil
}

func (d *catalogRepoCacheDecorator) CreateTheme(ctx context.Context, tx repository.Tx, t *model.Theme) (int, error) {
	id, err := d.CatalogRepository.CreateTheme(ctx, tx, t)
	if err != nil {
		return 0, err
	}
	d.invalidate(ctx, categoryKey(t.CategoryID))
	return id, nil
}

func (d *catalogRepoCacheDecorator) SaveCategory(ctx context.Context, tx repository.Tx, c *model.Category) error {
	if err := d.CatalogRepository.SaveCategory(ctx, tx, c); err != nil {
		return err
	}
	d.invalidate(ctx, categoryKey(c.ID))
	return nil
}

func (d *catalogRepoCacheDecorator) invalidate(ctx context.Context, keys ...string) {
	if err := d.cache.Del(ctx, keys...); err != nil {
		d.log.Warn().Err(err).Strs("keys", keys).Msg("catalog cache invalidation failed")
	}
}
