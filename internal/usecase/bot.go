package usecase

import (
	"errors"
	"fmt"

	"telegram-contest-bot/internal/config"
	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/pager"
	"telegram-contest-bot/internal/verification"

	"github.com/rs/zerolog"
)

// Translator resolves localized texts.
type Translator interface {
	T(key string, args ...any) string
}

// Deps are the collaborators of the contest bot flows.
type Deps struct {
	Profiles repository.ProfileRepository
	Catalog  repository.CatalogRepository
	Teams    repository.TeamRepository
	Tx       repository.TransactionManager
	Tokens   verification.Registry
	Mailer   adapter.Mailer
	Cursors  pager.CursorStore
	T        Translator
	Flow     config.FlowConfig
	Subject  string
	Logger   *zerolog.Logger
	Dev      bool
}

// Bot holds the contest conversation: registration, catalog browsing, theme
// choice, work link and profile management.
type Bot struct {
	profiles repository.ProfileRepository
	catalog  repository.CatalogRepository
	teams    repository.TeamRepository
	tx       repository.TransactionManager
	tokens   verification.Registry
	mailer   adapter.Mailer
	t        Translator
	flow     config.FlowConfig
	subject  string
	log      *zerolog.Logger
	dev      bool

	news      *pager.Browser[*model.News]
	materials *pager.Browser[*model.Material]
	themes    *pager.Browser[*model.Theme]
	browsers  map[pager.Kind]browser

	roleBranches map[model.MentorRole]roleBranch
	editFields   map[model.ProfileField]fieldEditor
}

func NewBot(d Deps) (*Bot, error) {
	switch {
	case d.Profiles == nil, d.Catalog == nil, d.Teams == nil, d.Tx == nil:
		return nil, fmt.Errorf("%w: repositories and transaction manager are required", domain.ErrInvalidArgument)
	case d.Tokens == nil, d.Mailer == nil, d.Cursors == nil, d.T == nil:
		return nil, fmt.Errorf("%w: token registry, mailer, cursor store and translator are required", domain.ErrInvalidArgument)
	}
	log := d.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	l := log.With().Str("component", "bot").Logger()
	if d.Flow.PageSize <= 0 {
		d.Flow.PageSize = 5
	}

	b := &Bot{
		profiles: d.Profiles,
		catalog:  d.Catalog,
		teams:    d.Teams,
		tx:       d.Tx,
		tokens:   d.Tokens,
		mailer:   d.Mailer,
		t:        d.T,
		flow:     d.Flow,
		subject:  d.Subject,
		log:      &l,
		dev:      d.Dev,
	}
	b.initBrowsers(d.Cursors)
	b.initRoleBranches()
	b.initFieldEditors()
	return b, nil
}

// Transitions returns the bot's transitions in matching order.
func (b *Bot) Transitions() []conversation.Transition {
	var ts []conversation.Transition
	ts = append(ts, b.commandTransitions()...)
	ts = append(ts, b.cancelTransitions()...)
	ts = append(ts, b.registrationTransitions()...)
	ts = append(ts, b.menuTransitions()...)
	ts = append(ts, b.browseTransitions()...)
	ts = append(ts, b.themeTransitions()...)
	ts = append(ts, b.linkTransitions()...)
	ts = append(ts, b.profileTransitions()...)
	return ts
}

// NewEngine builds a conversation engine with every bot transition registered.
func (b *Bot) NewEngine(sessions conversation.SessionStore, tg adapter.TelegramBotAdapter, logger *zerolog.Logger) (*conversation.Engine, error) {
	e, err := conversation.NewEngine(NewStateRegistry(), sessions, conversation.Options{
		Initial:     InitialState,
		FailureText: b.t.T("error.generic"),
		Logger:      logger,
		Bot:         tg,
	})
	if err != nil {
		return nil, err
	}
	if err := e.Register(b.Transitions()...); err != nil {
		return nil, err
	}
	return e, nil
}

// registered are the states in which the main menu is usable.
var registered = []conversation.StateGuard{
	conversation.InState(StateAfterRegistration),
	conversation.InGroup(GroupThemeSelect),
}

// each registers the same guard/handler pair for several state guards.
func each(name string, states []conversation.StateGuard, ev conversation.EventGuard, h conversation.Handler) []conversation.Transition {
	out := make([]conversation.Transition, 0, len(states))
	for _, s := range states {
		out = append(out, conversation.Transition{Name: name, State: s, Event: ev, Handler: h})
	}
	return out
}

func say(text string, markup *adapter.ReplyMarkup) conversation.Reply {
	return conversation.Say(text, markup)
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
