package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Input is what a handler sees. Scratch is a private copy; handlers change the
// session only through the returned Outcome.
type Input struct {
	UserID  int64
	State   State
	Event   Event
	Scratch *Scratch
}

type Handler func(ctx context.Context, in *Input) (Outcome, error)

// Transition is matched against (current state, event) in registration order.
type Transition struct {
	Name    string
	State   StateGuard
	Event   EventGuard
	Handler Handler
}

// Result describes how one event was dispatched.
type Result struct {
	Matched    bool
	Transition string
	From       State
	To         State
	Replies    []Reply
	// Err is the handler, store or validation failure that kept the state unchanged.
	Err error
}

type Options struct {
	// Initial is the state of a user seen for the first time.
	Initial State
	// FailureText is sent when a step fails.
	FailureText string
	Logger      *zerolog.Logger
	// Bot delivers replies in Handle. Dispatch never sends.
	Bot adapter.TelegramBotAdapter
}

// Engine is the per-user conversation state machine.
type Engine struct {
	registry *Registry
	sessions SessionStore
	lane     *Lane
	bot      adapter.TelegramBotAdapter
	log      *zerolog.Logger

	initial     State
	failureText string
	now         func() time.Time

	mu          sync.RWMutex
	transitions []Transition
}

func NewEngine(reg *Registry, sessions SessionStore, opts Options) (*Engine, error) {
	if reg == nil || sessions == nil {
		return nil, fmt.Errorf("%w: registry and session store are required", domain.ErrInvalidArgument)
	}
	if !reg.Has(opts.Initial) {
		return nil, fmt.Errorf("%w: initial state %q is not registered", domain.ErrInvalidArgument, opts.Initial)
	}
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Engine{
		registry:    reg,
		sessions:    sessions,
		lane:        NewLane(),
		bot:         opts.Bot,
		log:         logging.Component(log, "conversation"),
		initial:     opts.Initial,
		failureText: opts.FailureText,
		now:         time.Now,
	}, nil
}

// Register appends transitions. Guards must name registered states or groups.
func (e *Engine) Register(ts ...Transition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range ts {
		switch {
		case t.Name == "":
			return fmt.Errorf("%w: transition without name", domain.ErrInvalidArgument)
		case t.Event == nil || t.Handler == nil:
			return fmt.Errorf("%w: transition %q needs an event guard and a handler", domain.ErrInvalidArgument, t.Name)
		case !e.registry.validGuard(t.State):
			return fmt.Errorf("%w: transition %q guards unknown state %s", domain.ErrInvalidArgument, t.Name, t.State)
		}
		e.transitions = append(e.transitions, t)
	}
	return nil
}

func (e *Engine) MustRegister(ts ...Transition) {
	if err := e.Register(ts...); err != nil {
		panic(err)
	}
}

func (e *Engine) Registry() *Registry { return e.registry }

// Dispatch processes ev for userID without sending anything. It returns an
// error only when ctx ends before the user's lane is free.
func (e *Engine) Dispatch(ctx context.Context, userID int64, ev Event) (Result, error) {
	var res Result
	err := e.lane.Do(ctx, userID, func(ctx context.Context) error {
		res = e.step(ctx, userID, ev)
		return nil
	})
	return res, err
}

// Handle dispatches ev and delivers the replies while still holding the
// user's lane, so replies of consecutive events never interleave.
func (e *Engine) Handle(ctx context.Context, userID int64, ev Event) (Result, error) {
	var res Result
	err := e.lane.Do(ctx, userID, func(ctx context.Context) error {
		res = e.step(ctx, userID, ev)
		return e.deliver(ctx, userID, ev, res.Replies)
	})
	return res, err
}

// Session returns a copy of the user's session, or the default one for a new user.
func (e *Engine) Session(ctx context.Context, userID int64) (*Session, error) {
	var out *Session
	err := e.lane.Do(ctx, userID, func(ctx context.Context) error {
		s, err := e.load(ctx, userID)
		out = s
		return err
	})
	return out, err
}

func (e *Engine) step(ctx context.Context, userID int64, ev Event) Result {
	log := logging.With(ctx, e.log)
	sess, err := e.load(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("load session")
		metrics.IncConversationEvent(ev.Kind.String(), "failed")
		return Result{Err: err, Replies: e.failure()}
	}
	from := sess.State

	t, ok := e.match(from, ev)
	if !ok {
		log.Warn().
			Int64("user_id", userID).
			Str("state", from.String()).
			Str("kind", ev.Kind.String()).
			Int("payload_len", len(ev.Payload)).
			Msg("no transition matches event")
		metrics.IncConversationEvent(ev.Kind.String(), "unmatched")
		return Result{From: from, To: from}
	}

	res := Result{Matched: true, Transition: t.Name, From: from, To: from}
	in := &Input{UserID: userID, State: from, Event: ev, Scratch: sess.Scratch.Clone()}

	start := e.now()
	out, err := e.invoke(ctx, t, in)
	metrics.ObserveTransition(t.Name, e.now().Sub(start))
	if err == nil {
		if next, moved := out.Next(); moved && !e.registry.Has(next) {
			err = fmt.Errorf("%w: %q", domain.ErrUnregisteredState, next)
		}
	}
	if err != nil {
		return e.fail(log, res, ev, err)
	}

	updated := sess.Clone()
	if next, moved := out.Next(); moved {
		updated.State = next
	}
	out.applyTo(updated.Scratch)
	updated.UpdatedAt = e.now()
	if err := e.sessions.Save(ctx, updated); err != nil {
		return e.fail(log, res, ev, fmt.Errorf("save session: %w", err))
	}

	metrics.IncConversationEvent(ev.Kind.String(), "handled")
	log.Debug().
		Int64("user_id", userID).
		Str("transition", t.Name).
		Str("from", from.String()).
		Str("to", updated.State.String()).
		Msg("transition applied")

	res.To = updated.State
	res.Replies = out.Replies
	return res
}

func (e *Engine) fail(log *zerolog.Logger, res Result, ev Event, err error) Result {
	log.Error().Err(err).
		Str("transition", res.Transition).
		Str("state", res.From.String()).
		Msg("step failed, state unchanged")
	metrics.IncConversationEvent(ev.Kind.String(), "failed")
	res.Err = err
	res.To = res.From
	res.Replies = e.failure()
	return res
}

func (e *Engine) load(ctx context.Context, userID int64) (*Session, error) {
	sess, err := e.sessions.Load(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &Session{UserID: userID, State: e.initial, Scratch: NewScratch(), UpdatedAt: e.now()}, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Scratch == nil {
		sess.Scratch = NewScratch()
	}
	if !e.registry.Has(sess.State) {
		e.log.Warn().Int64("user_id", userID).Str("state", sess.State.String()).
			Msg("stored state is not registered, resetting")
		sess.State = e.initial
		sess.Scratch.Clear()
	}
	return sess, nil
}

func (e *Engine) match(s State, ev Event) (Transition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, t := range e.transitions {
		if t.State.Match(s) && t.Event(ev) {
			return t, true
		}
	}
	return Transition{}, false
}

func (e *Engine) invoke(ctx context.Context, t Transition, in *Input) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", domain.ErrHandlerPanic, t.Name, r)
		}
	}()
	return t.Handler(ctx, in)
}

func (e *Engine) failure() []Reply {
	if e.failureText == "" {
		return nil
	}
	return []Reply{{Text: e.failureText}}
}

func (e *Engine) deliver(ctx context.Context, userID int64, ev Event, replies []Reply) error {
	if e.bot == nil || len(replies) == 0 {
		return nil
	}
	var errs []error
	for _, r := range replies {
		p := adapter.SendMessageParams{
			ChatID:      userID,
			Text:        r.Text,
			ParseMode:   r.ParseMode,
			ReplyMarkup: r.Markup,
		}
		if r.Edit && ev.MessageID != 0 {
			p.EditMessageID = ev.MessageID
		}
		if err := e.bot.SendMessage(ctx, p); err != nil {
			logging.With(ctx, e.log).Error().Err(err).Int64("user_id", userID).Msg("deliver reply")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
