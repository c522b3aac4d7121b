package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/logging"

	"github.com/jackc/pgx/v4"
)

func (b *Bot) themeTransitions() []conversation.Transition {
	var ts []conversation.Transition
	ts = append(ts, each("theme.choose", registered, conversation.CallbackPrefix(cbThemeChoose), b.chooseTheme)...)
	ts = append(ts, each("theme.custom", registered, conversation.CallbackEquals(cbThemeCustom), b.startCustomTheme)...)
	ts = append(ts,
		// an empty id is the "changed my mind" button
		conversation.Transition{Name: "theme.decline", State: conversation.InState(StateThemeConfirm),
			Event: conversation.CallbackEquals(cbThemeConfirm), Handler: b.declineTheme},
		conversation.Transition{Name: "theme.confirm", State: conversation.InState(StateThemeConfirm),
			Event: conversation.CallbackPrefix(cbThemeConfirm), Handler: b.confirmTheme},
		conversation.Transition{Name: "theme.title", State: conversation.InState(StateThemeTitle),
			Event: conversation.AnyText(), Handler: b.customThemeTitle},
		conversation.Transition{Name: "theme.technique", State: conversation.InState(StateThemeTechnique),
			Event: conversation.AnyText(), Handler: b.customThemeTechnique},
	)
	return ts
}

func parseID(payload, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(payload, prefix))
	return id, err == nil && id > 0
}

func (b *Bot) chooseTheme(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	id, ok := parseID(in.Event.Payload, cbThemeChoose)
	if !ok {
		return conversation.Stay(say(b.t.T("theme.not_found"), nil)), nil
	}
	th, err := b.catalog.ThemeByID(ctx, repository.NoTX, id)
	if isNotFound(err) {
		return conversation.Stay(say(b.t.T("theme.not_found"), nil)), nil
	}
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("load theme %d: %w", id, err)
	}
	prompt := say(b.t.T("theme.confirm", th.Title, th.Technique), inline([]adapter.Button{
		cb(b.t.T("theme.btn_confirm"), cbThemeConfirm+itoa(th.ID)),
		cb(b.t.T("theme.btn_decline"), cbThemeConfirm),
	}))
	return conversation.Goto(StateThemeConfirm, prompt).ClearScratch().With(keyThemeID, itoa(th.ID)), nil
}

func (b *Bot) declineTheme(context.Context, *conversation.Input) (conversation.Outcome, error) {
	r := say(b.t.T("theme.declined"), nil)
	r.Edit = true
	return conversation.Goto(StateAfterRegistration, r).ClearScratch(), nil
}

func (b *Bot) confirmTheme(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	id, ok := parseID(in.Event.Payload, cbThemeConfirm)
	if !ok {
		return conversation.Goto(StateAfterRegistration, say(b.t.T("theme.not_found"), nil)).ClearScratch(), nil
	}
	th, err := b.catalog.ThemeByID(ctx, repository.NoTX, id)
	if isNotFound(err) {
		return conversation.Goto(StateAfterRegistration, say(b.t.T("theme.not_found"), nil)).ClearScratch(), nil
	}
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("load theme %d: %w", id, err)
	}

	team, err := b.teams.FindByMember(ctx, repository.NoTX, in.UserID)
	if errors.Is(err, domain.ErrNoTeam) {
		return conversation.Goto(StateAfterRegistration, say(b.t.T("team.none"), nil)).ClearScratch(), nil
	}
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("find team: %w", err)
	}
	if err := b.teams.UpdateWorkTheme(ctx, repository.NoTX, team.TeamID, th.Label()); err != nil {
		return conversation.Outcome{}, fmt.Errorf("update work theme: %w", err)
	}
	team.WorkTheme = th.Label()

	logging.With(ctx, b.log).Info().Int64("team_id", team.TeamID).Int("theme_id", th.ID).Msg("theme chosen")
	chosen := say(b.t.T("theme.chosen"), nil)
	chosen.Edit = true
	return conversation.Goto(StateAfterRegistration, chosen, b.formatTeam(team)).ClearScratch(), nil
}

func (b *Bot) cancelThemeKeyboard() *adapter.ReplyMarkup {
	return inline([]adapter.Button{cb(b.t.T("edit.btn_cancel"), cbThemeCancel)})
}

func (b *Bot) startCustomTheme(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Goto(StateThemeTitle,
		say(b.t.T("theme.ask_title", MaxThemeTitle), b.cancelThemeKeyboard())).ClearScratch(), nil
}

func (b *Bot) customThemeTitle(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
	title, err := LimitText(MaxThemeTitle)(in.Event.Payload)
	if err != nil {
		return conversation.Stay(say(b.t.T("theme.bad_title", MaxThemeTitle), b.cancelThemeKeyboard())), nil
	}
	return conversation.Goto(StateThemeTechnique,
		say(b.t.T("theme.ask_technique", MaxThemeTechniq), b.cancelThemeKeyboard())).
		With(keyThemeTitle, title), nil
}

// customThemeTechnique stores the new theme and binds it to the user's team in
// one transaction.
func (b *Bot) customThemeTechnique(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	log := logging.With(ctx, b.log)
	technique, err := LimitText(MaxThemeTechniq)(in.Event.Payload)
	if err != nil {
		return conversation.Stay(say(b.t.T("theme.bad_technique", MaxThemeTechniq), b.cancelThemeKeyboard())), nil
	}
	title := in.Scratch.Value(keyThemeTitle)
	if title == "" {
		return conversation.Goto(StateThemeTitle,
			say(b.t.T("theme.ask_title", MaxThemeTitle), b.cancelThemeKeyboard())), nil
	}

	team, err := b.teams.FindByMember(ctx, repository.NoTX, in.UserID)
	if err != nil && !errors.Is(err, domain.ErrNoTeam) {
		return conversation.Outcome{}, fmt.Errorf("find team: %w", err)
	}

	th := &model.Theme{Title: title, Technique: technique, CategoryID: b.flow.CustomThemeCategory}
	err = b.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		id, err := b.catalog.CreateTheme(ctx, tx, th)
		if err != nil {
			return err
		}
		th.ID = id
		if team == nil {
			return nil
		}
		return b.teams.UpdateWorkTheme(ctx, tx, team.TeamID, th.Label())
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", in.UserID).Msg("create custom theme")
		return conversation.Goto(StateAfterRegistration,
			say(b.t.T("theme.create_failed"), b.menuKeyboard())).ClearScratch(), nil
	}
	if team == nil {
		return conversation.Goto(StateAfterRegistration,
			say(b.t.T("theme.unbound"), b.menuKeyboard())).ClearScratch(), nil
	}

	log.Info().Int64("team_id", team.TeamID).Int("theme_id", th.ID).Msg("custom theme created")
	return conversation.Goto(StateAfterRegistration,
		say(b.t.T("theme.created", th.Title, th.Technique), b.menuKeyboard())).ClearScratch(), nil
}
