package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/logging"
)

func (b *Bot) linkTransitions() []conversation.Transition {
	return []conversation.Transition{
		{Name: "link.submit", State: conversation.InState(StateLinkWaiting), Event: conversation.AnyText(), Handler: b.submitLink},
	}
}

func (b *Bot) cancelLinkKeyboard() *adapter.ReplyMarkup {
	return inline([]adapter.Button{cb(b.t.T("edit.btn_cancel"), cbLinkCancel)})
}

func (b *Bot) startLink(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	_, err := b.teams.FindByMember(ctx, repository.NoTX, in.UserID)
	if errors.Is(err, domain.ErrNoTeam) {
		return conversation.Goto(StateAfterRegistration, say(b.t.T("team.none"), nil)).ClearScratch(), nil
	}
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("find team: %w", err)
	}
	return conversation.Goto(StateLinkWaiting,
		say(b.t.T("link.start"), removeKeyboard()),
		say(b.t.T("link.ask"), b.cancelLinkKeyboard()),
	).ClearScratch(), nil
}

func (b *Bot) submitLink(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	link, err := NormalizeLink(in.Event.Payload)
	if err != nil {
		return conversation.Stay(say(b.t.T("link.bad"), b.cancelLinkKeyboard())), nil
	}
	team, err := b.teams.FindByMember(ctx, repository.NoTX, in.UserID)
	if errors.Is(err, domain.ErrNoTeam) {
		return conversation.Goto(StateAfterRegistration, say(b.t.T("team.none"), b.menuKeyboard())).ClearScratch(), nil
	}
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("find team: %w", err)
	}
	if err := b.teams.UpdateWorkLink(ctx, repository.NoTX, team.TeamID, link); err != nil {
		return conversation.Outcome{}, fmt.Errorf("update work link: %w", err)
	}
	team.WorkLink = link

	logging.With(ctx, b.log).Info().Int64("team_id", team.TeamID).Msg("work link updated")
	return conversation.Goto(StateAfterRegistration,
		say(b.t.T("link.updated"), b.menuKeyboard()),
		b.formatTeam(team),
	).ClearScratch(), nil
}
