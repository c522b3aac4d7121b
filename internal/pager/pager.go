package pager

import (
	"context"
	"fmt"
	"time"

	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

type Direction int

const (
	Forward Direction = iota + 1
	Backward
)

// Nav tells the controls builder where the page sits.
type Nav struct {
	Position int
	HasPrev  bool
	HasNext  bool
}

type Status int

const (
	Rendered Status = iota + 1
	// Empty: nothing at the requested position; the cursor was not moved.
	Empty
	// Failed: fetching or rendering broke; the cursor was not moved.
	Failed
)

func (s Status) String() string {
	switch s {
	case Rendered:
		return "rendered"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// View is a rendered page or the message that replaces it.
type View struct {
	Status Status
	Text   string
	Markup *adapter.ReplyMarkup
	Nav    Nav
}

// Collection plugs a data source and its presentation into a Browser.
type Collection[T any] struct {
	Kind Kind
	// Start is where browsing begins without a live cursor.
	Start int
	// Min is the lowest reachable position.
	Min      int
	Fetch    func(ctx context.Context, position int) ([]T, error)
	Format   func(items []T) string
	Controls func(items []T, nav Nav) *adapter.ReplyMarkup

	EmptyText string
	ErrorText string
}

// Browser pages through one collection for many users.
type Browser[T any] struct {
	c       Collection[T]
	cursors CursorStore
	ttl     time.Duration
	now     func() time.Time
	log     *zerolog.Logger
}

func NewBrowser[T any](c Collection[T], cursors CursorStore, ttl time.Duration, log *zerolog.Logger) *Browser[T] {
	if ttl <= 0 {
		ttl = DefaultCursorTTL
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "pager").Str("kind", string(c.Kind)).Logger()
	return &Browser[T]{c: c, cursors: cursors, ttl: ttl, now: time.Now, log: &l}
}

func (b *Browser[T]) Kind() Kind { return b.c.Kind }

// Open renders the page at position.
func (b *Browser[T]) Open(ctx context.Context, userID int64, position int) View {
	if position < b.c.Min {
		position = b.c.Min
	}
	return b.render(ctx, userID, position)
}

// Resume renders the page under the live cursor, or the start page.
func (b *Browser[T]) Resume(ctx context.Context, userID int64) View {
	pos, err := b.position(ctx, userID)
	if err != nil {
		return b.failed(ctx, pos, err)
	}
	return b.render(ctx, userID, pos)
}

// Advance moves one page from the live cursor. Backward stops at Min.
func (b *Browser[T]) Advance(ctx context.Context, userID int64, dir Direction) View {
	pos, err := b.position(ctx, userID)
	if err != nil {
		return b.failed(ctx, pos, err)
	}
	switch dir {
	case Forward:
		pos++
	case Backward:
		pos--
		if pos < b.c.Min {
			pos = b.c.Min
		}
	}
	return b.render(ctx, userID, pos)
}

// position returns the live cursor position or Start. A stale cursor is evicted.
func (b *Browser[T]) position(ctx context.Context, userID int64) (int, error) {
	cur, ok, err := b.cursors.Get(ctx, userID, b.c.Kind)
	if err != nil {
		return b.c.Start, fmt.Errorf("get cursor: %w", err)
	}
	if !ok {
		return b.c.Start, nil
	}
	if b.now().Sub(cur.LastAccess) > b.ttl {
		if err := b.cursors.Delete(ctx, userID, b.c.Kind); err != nil {
			b.log.Warn().Err(err).Int64("user_id", userID).Msg("evict stale cursor")
		}
		return b.c.Start, nil
	}
	return cur.Position, nil
}

func (b *Browser[T]) render(ctx context.Context, userID int64, pos int) (v View) {
	defer func() {
		if r := recover(); r != nil {
			v = b.failed(ctx, pos, fmt.Errorf("panic: %v", r))
		}
	}()

	items, err := b.c.Fetch(ctx, pos)
	if err != nil {
		return b.failed(ctx, pos, err)
	}
	if len(items) == 0 {
		metrics.IncPagerRender(string(b.c.Kind), Empty.String())
		return View{Status: Empty, Text: b.c.EmptyText}
	}
	text := b.c.Format(items)

	// probe only decides whether "next" is offered
	ahead, err := b.c.Fetch(ctx, pos+1)
	if err != nil {
		return b.failed(ctx, pos, fmt.Errorf("lookahead: %w", err))
	}
	nav := Nav{Position: pos, HasPrev: pos > b.c.Min, HasNext: len(ahead) > 0}

	var markup *adapter.ReplyMarkup
	if b.c.Controls != nil {
		markup = b.c.Controls(items, nav)
	}

	if err := b.cursors.Put(ctx, userID, b.c.Kind, Cursor{Position: pos, LastAccess: b.now()}); err != nil {
		return b.failed(ctx, pos, fmt.Errorf("put cursor: %w", err))
	}
	metrics.IncPagerRender(string(b.c.Kind), Rendered.String())
	return View{Status: Rendered, Text: text, Markup: markup, Nav: nav}
}

func (b *Browser[T]) failed(ctx context.Context, pos int, err error) View {
	logging.With(ctx, b.log).Error().Err(err).Int("position", pos).Msg("page load failed")
	metrics.IncPagerRender(string(b.c.Kind), Failed.String())
	return View{Status: Failed, Text: b.c.ErrorText}
}
