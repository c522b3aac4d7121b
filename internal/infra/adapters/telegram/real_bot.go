package telegram

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-contest-bot/internal/config"
	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/infra/metrics"
	red "telegram-contest-bot/internal/infra/redis"
	"telegram-contest-bot/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// Dispatcher handles one inbound event for a user and delivers its replies.
type Dispatcher interface {
	Handle(ctx context.Context, userID int64, ev conversation.Event) (conversation.Result, error)
}

// RateLimiter decides whether one more update from key is allowed in window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// client is the subset of *tgbotapi.BotAPI used for outbound calls.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RealTelegramBotAdapter polls Telegram and feeds updates to a Dispatcher.
// Each user gets a queue of their own in the worker pool, so one user's events
// are handled in arrival order and a slow step never holds up another user.
type RealTelegramBotAdapter struct {
	api    *tgbotapi.BotAPI
	client client
	cfg    *config.BotConfig
	pool   *worker.Pool
	log    *zerolog.Logger

	handler     Dispatcher
	rateLimiter RateLimiter
	limitText   string

	// cancelPolling cancels polling when called
	cancelPolling context.CancelFunc
}

// NewRealTelegramBotAdapter connects to the Bot API. The dispatcher is
// attached later with SetDispatcher, since the engine needs the adapter to send.
func NewRealTelegramBotAdapter(cfg *config.BotConfig, pool *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	r := newAdapter(api, cfg, pool, logger)
	r.api = api
	r.log.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
	return r, nil
}

func newAdapter(c client, cfg *config.BotConfig, pool *worker.Pool, logger *zerolog.Logger) *RealTelegramBotAdapter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RealTelegramBotAdapter{
		client: c,
		cfg:    cfg,
		pool:   pool,
		log:    logging.Component(logger, "telegram"),
	}
}

func (r *RealTelegramBotAdapter) SetDispatcher(d Dispatcher) { r.handler = d }

// SetRateLimiter enables per-user throttling using cfg.RateLimitPerMinute.
// text is sent to a user whose update was dropped.
func (r *RealTelegramBotAdapter) SetRateLimiter(l RateLimiter, text string) {
	r.rateLimiter = l
	r.limitText = text
}

// StartPolling receives updates until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.api == nil {
		return errors.New("telegram api is not connected")
	}
	if r.handler == nil {
		return errors.New("dispatcher is not set")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.PollTimeout

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel
	defer cancel()

	updates := r.api.GetUpdatesChan(u)
	r.log.Info().Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			r.log.Info().Msg("polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			r.enqueue(ctx, upd)
		}
	}
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) enqueue(ctx context.Context, upd tgbotapi.Update) {
	in, ok := inboundFrom(upd)
	if !ok {
		return
	}
	err := r.pool.SubmitKeyed(ctx, in.userID, func(ctx context.Context) error {
		return r.process(ctx, in)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error().Err(err).Int("update_id", upd.UpdateID).Int64("tg_id", in.userID).Msg("enqueue update")
	}
}

// inbound is a Telegram update reduced to what the conversation needs.
type inbound struct {
	updateID   int
	userID     int64
	callbackID string
	event      conversation.Event
}

func (in inbound) kind() string {
	if in.event.Kind == conversation.KindCallback {
		return "callback"
	}
	return "message"
}

// inboundFrom extracts text messages and callback queries; other updates are ignored.
func inboundFrom(upd tgbotapi.Update) (inbound, bool) {
	switch {
	case upd.CallbackQuery != nil:
		q := upd.CallbackQuery
		if q.From == nil {
			return inbound{}, false
		}
		var msgID int
		if q.Message != nil {
			if q.Message.Chat != nil && !q.Message.Chat.IsPrivate() {
				return inbound{}, false
			}
			msgID = q.Message.MessageID
		}
		ev := conversation.CallbackEvent(strings.TrimSpace(q.Data), msgID)
		ev.Username = q.From.UserName
		return inbound{updateID: upd.UpdateID, userID: q.From.ID, callbackID: q.ID, event: ev}, true

	case upd.Message != nil:
		m := upd.Message
		if m.From == nil || m.Text == "" {
			return inbound{}, false
		}
		if m.Chat != nil && !m.Chat.IsPrivate() {
			return inbound{}, false
		}
		ev := conversation.TextEvent(m.Text)
		ev.Username = m.From.UserName
		return inbound{updateID: upd.UpdateID, userID: m.From.ID, event: ev}, true
	}
	return inbound{}, false
}

func (r *RealTelegramBotAdapter) process(ctx context.Context, in inbound) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithTgID(ctx, in.userID)
	ctx = logging.WithUpdateID(ctx, in.updateID)
	log := logging.With(ctx, r.log)
	defer logging.TraceDuration(log, "Telegram.process")()

	metrics.IncTelegramUpdate(in.kind())

	if in.callbackID != "" {
		// stop the client's spinner before the handler runs
		if _, err := r.client.Request(tgbotapi.NewCallback(in.callbackID, "")); err != nil {
			metrics.IncTelegramSendError("ack")
			log.Warn().Err(err).Msg("ack callback")
		}
	}

	if !r.allow(ctx, in.userID) {
		metrics.IncRateLimitTriggered()
		log.Warn().Msg("rate limited")
		if r.limitText == "" || in.event.Kind == conversation.KindCallback {
			return nil
		}
		return r.SendMessage(ctx, adapter.SendMessageParams{ChatID: in.userID, Text: r.limitText})
	}

	_, err := r.handler.Handle(ctx, in.userID, in.event)
	return err
}

func (r *RealTelegramBotAdapter) allow(ctx context.Context, userID int64) bool {
	if r.rateLimiter == nil || r.cfg.RateLimitPerMinute <= 0 {
		return true
	}
	ok, err := r.rateLimiter.Allow(ctx, red.UserUpdateKey(userID), r.cfg.RateLimitPerMinute, time.Minute)
	if err != nil {
		// fail open
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter")
		return true
	}
	return ok
}

// SendMessage sends params.Text, or edits params.EditMessageID in place.
// A failed edit falls back to a new message.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if params.EditMessageID != 0 && editable(params.ReplyMarkup) {
		err := r.edit(params)
		if err == nil || isNotModified(err) {
			return nil
		}
		metrics.IncTelegramSendError("edit")
		logging.With(ctx, r.log).Warn().Err(err).Int("message_id", params.EditMessageID).Msg("edit failed, sending new message")
	}

	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	if m := toMarkup(params.ReplyMarkup); m != nil {
		msg.ReplyMarkup = m
	}
	if _, err := r.client.Send(msg); err != nil {
		metrics.IncTelegramSendError("send")
		return err
	}
	return nil
}

func (r *RealTelegramBotAdapter) edit(params adapter.SendMessageParams) error {
	cfg := tgbotapi.NewEditMessageText(params.ChatID, params.EditMessageID, params.Text)
	cfg.ParseMode = params.ParseMode
	if params.ReplyMarkup != nil {
		kb := inlineKeyboard(params.ReplyMarkup.Buttons)
		cfg.ReplyMarkup = &kb
	}
	_, err := r.client.Send(cfg)
	return err
}

// SetMyCommands publishes the bot's command menu.
func (r *RealTelegramBotAdapter) SetMyCommands(ctx context.Context, commands map[string]string) error {
	if len(commands) == 0 {
		return nil
	}
	list := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, name := range commandOrder(commands) {
		list = append(list, tgbotapi.BotCommand{Command: name, Description: commands[name]})
	}
	if _, err := r.client.Request(tgbotapi.NewSetMyCommands(list...)); err != nil {
		metrics.IncTelegramSendError("commands")
		return err
	}
	logging.With(ctx, r.log).Debug().Int("count", len(list)).Msg("bot commands set")
	return nil
}

// editable reports whether a message can be edited to carry markup; only
// inline keyboards survive an edit.
func editable(m *adapter.ReplyMarkup) bool {
	return m == nil || (m.IsInline && !m.Remove)
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// toMarkup converts the port keyboard to the Bot API shape, or nil.
func toMarkup(m *adapter.ReplyMarkup) any {
	switch {
	case m == nil:
		return nil
	case m.Remove:
		return tgbotapi.NewRemoveKeyboard(false)
	case m.IsInline:
		kb := inlineKeyboard(m.Buttons)
		if len(kb.InlineKeyboard) == 0 {
			return nil
		}
		return kb
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Buttons))
	for _, row := range m.Buttons {
		if len(row) == 0 {
			continue
		}
		out := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, btn := range row {
			out = append(out, tgbotapi.NewKeyboardButton(btn.Text))
		}
		rows = append(rows, out)
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// inlineKeyboard builds inline rows:
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else btn.Text is used as callback data
func inlineKeyboard(rows [][]adapter.Button) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kbRows}
}

// commandOrder lists "start" and "menu" first, then the rest alphabetically.
func commandOrder(commands map[string]string) []string {
	out := make([]string, 0, len(commands))
	for _, name := range []string{"start", "menu"} {
		if _, ok := commands[name]; ok {
			out = append(out, name)
		}
	}
	rest := make([]string, 0, len(commands))
	for name := range commands {
		if name != "start" && name != "menu" {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
