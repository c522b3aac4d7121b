package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/repository"
)

func (b *Bot) commandTransitions() []conversation.Transition {
	return []conversation.Transition{
		{Name: "command.start", State: conversation.AnyState(), Event: conversation.Command("start"), Handler: b.start},
		{Name: "command.menu", State: conversation.AnyState(), Event: conversation.Command("menu"), Handler: b.showMenu},
	}
}

// start resets whatever the user was doing and routes by registration status.
func (b *Bot) start(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	_, err := b.profiles.FindByUserID(ctx, repository.NoTX, in.UserID)
	switch {
	case err == nil:
		return conversation.Goto(StateAfterRegistration,
			say(b.t.T("start.welcome_back"), b.menuKeyboard())).ClearScratch(), nil
	case isNotFound(err):
		return conversation.Goto(StateBeforeRegistration,
			say(b.t.T("start.greeting"), b.registerKeyboard())).ClearScratch(), nil
	default:
		return conversation.Outcome{}, fmt.Errorf("find profile: %w", err)
	}
}

func (b *Bot) showMenu(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	_, err := b.profiles.FindByUserID(ctx, repository.NoTX, in.UserID)
	switch {
	case err == nil:
		return conversation.Goto(StateAfterRegistration,
			say(b.t.T("menu.title"), b.menuKeyboard())).ClearScratch(), nil
	case isNotFound(err):
		if in.State.Group == GroupRegistration {
			return conversation.Stay(), nil
		}
		return conversation.Goto(StateBeforeRegistration,
			say(b.t.T("start.hint"), b.registerKeyboard())).ClearScratch(), nil
	default:
		return conversation.Outcome{}, fmt.Errorf("find profile: %w", err)
	}
}

func (b *Bot) cancelTransitions() []conversation.Transition {
	word := conversation.TextEquals(b.t.T("cancel.word"))
	backToMenu := func(key string) conversation.Handler {
		return func(context.Context, *conversation.Input) (conversation.Outcome, error) {
			return conversation.Goto(StateAfterRegistration, say(b.t.T(key), b.menuKeyboard())).ClearScratch(), nil
		}
	}
	return []conversation.Transition{
		{Name: "cancel.registration", State: conversation.InGroup(GroupRegistration), Event: word,
			Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
				return conversation.Goto(StateBeforeRegistration,
					say(b.t.T("reg.cancelled"), b.registerKeyboard())).ClearScratch(), nil
			}},
		{Name: "cancel.profile_edit", State: conversation.InGroup(GroupProfileEdit),
			Event:   conversation.AnyOf(word, conversation.CallbackEquals(cbEditCancel)),
			Handler: backToMenu("edit.cancelled")},
		{Name: "cancel.theme_create", State: conversation.InGroup(GroupThemeCreate),
			Event:   conversation.AnyOf(word, conversation.CallbackEquals(cbThemeCancel)),
			Handler: backToMenu("theme.create_cancelled")},
		{Name: "cancel.link", State: conversation.InGroup(GroupLink),
			Event:   conversation.AnyOf(word, conversation.CallbackEquals(cbLinkCancel)),
			Handler: backToMenu("link.cancelled")},
	}
}

func (b *Bot) menuTransitions() []conversation.Transition {
	var ts []conversation.Transition
	ts = append(ts, each("menu.news", registered, conversation.TextEquals(b.t.T("menu.news")), b.openNews)...)
	ts = append(ts, each("menu.materials", registered, conversation.TextEquals(b.t.T("menu.materials")), b.openMaterials)...)
	ts = append(ts, each("menu.theme", registered, conversation.TextEquals(b.t.T("menu.theme")), b.openThemes)...)
	ts = append(ts, each("menu.work", registered, conversation.TextEquals(b.t.T("menu.work")), b.startLink)...)
	ts = append(ts, each("menu.profile", registered, conversation.TextEquals(b.t.T("menu.profile")), b.showProfile)...)
	return ts
}

func (b *Bot) profileSummary(p *model.Profile, withTheme bool) string {
	var sb strings.Builder
	sb.WriteString(b.t.T("profile.summary", p.FullName, p.School, p.Phone, p.Mail, p.MentorName))
	if p.MentorPost != "" {
		sb.WriteString("\n")
		sb.WriteString(b.t.T("profile.mentor_post", p.MentorPost))
	}
	if withTheme && p.Theme != "" {
		sb.WriteString("\n")
		sb.WriteString(b.t.T("profile.theme", p.Theme))
	}
	return sb.String()
}

// teamCard renders the user's team, or the no-team notice.
func (b *Bot) teamCard(ctx context.Context, userID int64) (conversation.Reply, error) {
	team, err := b.teams.FindByMember(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNoTeam) {
		return say(b.t.T("team.none"), nil), nil
	}
	if err != nil {
		return conversation.Reply{}, fmt.Errorf("find team: %w", err)
	}
	return b.formatTeam(team), nil
}

func (b *Bot) formatTeam(team *model.TeamInfo) conversation.Reply {
	orUnset := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return b.t.T("team.unset")
		}
		return html.EscapeString(s)
	}
	r := say(b.t.T("team.card",
		html.EscapeString(team.Name), orUnset(team.WorkTheme), orUnset(team.WorkLink), team.ParticipantsCount), nil)
	r.ParseMode = "HTML"
	return r
}
