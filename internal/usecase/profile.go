package usecase

import (
	"context"
	"fmt"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/logging"
)

type fieldEditor struct {
	validate func(string) (string, error)
	bad      string
}

func (b *Bot) initFieldEditors() {
	b.editFields = map[model.ProfileField]fieldEditor{
		model.FieldFullName:   {validate: NormalizeFIO, bad: b.t.T("reg.bad_name")},
		model.FieldSchool:     {validate: LimitText(MaxSchoolLen), bad: b.t.T("reg.bad_school", MaxSchoolLen)},
		model.FieldPhone:      {validate: NormalizePhone, bad: b.t.T("reg.bad_phone")},
		model.FieldMentorName: {validate: NormalizeFIO, bad: b.t.T("reg.bad_mentor_name")},
		model.FieldMentorPost: {validate: LimitText(MaxMentorPost), bad: b.t.T("reg.bad_post", MaxMentorPost)},
	}
}

func (b *Bot) profileTransitions() []conversation.Transition {
	var ts []conversation.Transition
	ts = append(ts, each("profile.edit", registered, conversation.CallbackEquals(cbProfileEdit), b.startEdit)...)
	ts = append(ts,
		conversation.Transition{Name: "profile.edit_field", State: conversation.InState(StateEditChooseField),
			Event: conversation.CallbackPrefix(cbEditPrefix), Handler: b.chooseField},
		conversation.Transition{Name: "profile.edit_field_text", State: conversation.InState(StateEditChooseField),
			Event: conversation.AnyText(), Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
				return conversation.Stay(say(b.t.T("reg.use_buttons"), b.editFieldsKeyboard())), nil
			}},
		conversation.Transition{Name: "profile.edit_value", State: conversation.InState(StateEditWaitingValue),
			Event: conversation.AnyText(), Handler: b.editValue},
	)
	return ts
}

func (b *Bot) showProfile(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	p, err := b.profiles.FindByUserID(ctx, repository.NoTX, in.UserID)
	if isNotFound(err) {
		return conversation.Goto(StateBeforeRegistration,
			say(b.t.T("profile.not_registered"), b.registerKeyboard())).ClearScratch(), nil
	}
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("find profile: %w", err)
	}
	card, err := b.teamCard(ctx, in.UserID)
	if err != nil {
		return conversation.Outcome{}, err
	}
	summary := say(b.profileSummary(p, true), inline([]adapter.Button{cb(b.t.T("profile.btn_edit"), cbProfileEdit)}))
	return conversation.Goto(StateAfterRegistration, summary, card).ClearScratch(), nil
}

func (b *Bot) startEdit(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Goto(StateEditChooseField, say(b.t.T("edit.choose"), b.editFieldsKeyboard())).ClearScratch(), nil
}

func (b *Bot) chooseField(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
	field := model.ProfileField(in.Event.Payload[len(cbEditPrefix):])
	if _, ok := b.editFields[field]; !ok {
		return conversation.Stay(say(b.t.T("edit.choose"), b.editFieldsKeyboard())), nil
	}
	label := b.t.T("edit.field." + string(field))
	return conversation.Goto(StateEditWaitingValue,
		say(b.t.T("edit.ask", label), inline([]adapter.Button{cb(b.t.T("edit.btn_cancel"), cbEditCancel)}))).
		With(keyEditField, string(field)), nil
}

func (b *Bot) editValue(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	field := model.ProfileField(in.Scratch.Value(keyEditField))
	ed, ok := b.editFields[field]
	if !ok {
		return conversation.Goto(StateEditChooseField, say(b.t.T("edit.choose"), b.editFieldsKeyboard())), nil
	}
	v, err := ed.validate(in.Event.Payload)
	if err != nil {
		return conversation.Stay(say(ed.bad, nil)), nil
	}
	if err := b.profiles.UpdateField(ctx, repository.NoTX, in.UserID, field, v); err != nil {
		return conversation.Outcome{}, fmt.Errorf("update %s: %w", field, err)
	}
	logging.With(ctx, b.log).Info().Int64("user_id", in.UserID).Str("field", string(field)).Msg("profile updated")

	out := conversation.Goto(StateAfterRegistration, say(b.t.T("edit.done"), b.menuKeyboard())).ClearScratch()
	p, err := b.profiles.FindByUserID(ctx, repository.NoTX, in.UserID)
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Int64("user_id", in.UserID).Msg("reload profile after edit")
		return out, nil
	}
	return out.Say(say(b.profileSummary(p, true), nil)), nil
}
