package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/infra/metrics"
	"telegram-contest-bot/internal/verification"

	"github.com/jackc/pgx/v4"
)

type roleBranch func(in *conversation.Input) conversation.Outcome

func (b *Bot) initRoleBranches() {
	b.roleBranches = map[model.MentorRole]roleBranch{
		model.MentorTeacher: func(*conversation.Input) conversation.Outcome {
			return conversation.Goto(StateRegMentorPost, say(b.t.T("reg.ask_post"), nil)).
				With(keyMentorRole, string(model.MentorTeacher)).
				Without(keyMentorPost)
		},
		model.MentorParent: func(*conversation.Input) conversation.Outcome {
			return conversation.Goto(StateRegMail, say(b.t.T("reg.ask_mail"), nil)).
				With(keyMentorRole, string(model.MentorParent)).
				With(keyMentorPost, model.ParentGuardianPost)
		},
		model.MentorOther: func(*conversation.Input) conversation.Outcome {
			return conversation.Goto(StateRegMentorCustomRole, say(b.t.T("reg.ask_custom_role"), nil)).
				With(keyMentorRole, string(model.MentorOther)).
				Without(keyMentorPost)
		},
	}
}

func (b *Bot) registrationTransitions() []conversation.Transition {
	on := func(name string, st conversation.State, ev conversation.EventGuard, h conversation.Handler) conversation.Transition {
		return conversation.Transition{Name: name, State: conversation.InState(st), Event: ev, Handler: h}
	}
	text := conversation.AnyText()

	return []conversation.Transition{
		on("registration.open", StateBeforeRegistration, conversation.TextEquals(b.t.T("menu.register")), b.openRegistration),
		on("registration.accept", StateBeforeRegistration, conversation.CallbackEquals(cbRegYes), b.acceptRegistration),
		on("registration.decline", StateBeforeRegistration, conversation.CallbackEquals(cbRegNo), b.declineRegistration),
		on("registration.hint", StateBeforeRegistration, text, b.registrationHint),

		on("registration.name", StateRegName, text,
			b.collect(NormalizeFIO, keyFullName, "reg.bad_name", StateRegSchool, "reg.ask_school")),
		on("registration.school", StateRegSchool, text,
			b.collect(LimitText(MaxSchoolLen), keySchool, "reg.bad_school", StateRegPhone, "reg.ask_phone")),
		on("registration.phone", StateRegPhone, text,
			b.collect(NormalizePhone, keyPhone, "reg.bad_phone", StateRegMentorName, "reg.ask_mentor_name")),
		on("registration.mentor_name", StateRegMentorName, text, b.mentorName),
		on("registration.mentor_role", StateRegMentorRole, conversation.CallbackPrefix(cbRolePrefix), b.mentorRole),
		on("registration.mentor_role_text", StateRegMentorRole, text, b.mentorRoleText),
		on("registration.mentor_post", StateRegMentorPost, text,
			b.collect(LimitText(MaxMentorPost), keyMentorPost, "reg.bad_post", StateRegMail, "reg.ask_mail")),
		on("registration.mentor_custom_role", StateRegMentorCustomRole, text,
			b.collect(LimitText(MaxMentorPost), keyMentorPost, "reg.bad_post", StateRegMail, "reg.ask_mail")),
		on("registration.mail", StateRegMail, text, b.submitMail),
		on("registration.change_mail", StateRegVerify, conversation.CallbackEquals(cbMailChange), b.changeMail),
		on("registration.resend_code", StateRegVerify, conversation.CallbackEquals(cbMailResend), b.resendCode),
		on("registration.verify", StateRegVerify, text, b.verifyCode),
	}
}

func (b *Bot) openRegistration(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Stay(
		say(b.t.T("reg.start"), removeKeyboard()),
		say(b.t.T("reg.steps"), inline([]adapter.Button{
			cb(b.t.T("reg.btn_yes"), cbRegYes),
			cb(b.t.T("reg.btn_no"), cbRegNo),
		})),
	), nil
}

func (b *Bot) acceptRegistration(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
	return conversation.Goto(StateRegName, say(b.t.T("reg.ask_name"), nil)).
		ClearScratch().
		With(keyNickname, in.Event.Username), nil
}

func (b *Bot) declineRegistration(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Stay(say(b.t.T("reg.declined"), b.registerKeyboard())), nil
}

func (b *Bot) registrationHint(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Stay(say(b.t.T("start.hint"), b.registerKeyboard())), nil
}

// collect validates a text answer, stores it under key and asks the next question.
func (b *Bot) collect(validate func(string) (string, error), key, badKey string, next conversation.State, askKey string) conversation.Handler {
	return func(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
		v, err := validate(in.Event.Payload)
		if err != nil {
			return conversation.Stay(say(b.badText(badKey), nil)), nil
		}
		return conversation.Goto(next, say(b.t.T(askKey), nil)).With(key, v), nil
	}
}

// badText formats validation messages that mention a length limit.
func (b *Bot) badText(key string) string {
	switch key {
	case "reg.bad_school":
		return b.t.T(key, MaxSchoolLen)
	case "reg.bad_post":
		return b.t.T(key, MaxMentorPost)
	default:
		return b.t.T(key)
	}
}

func (b *Bot) mentorName(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
	v, err := NormalizeFIO(in.Event.Payload)
	if err != nil {
		return conversation.Stay(say(b.t.T("reg.bad_mentor_name"), nil)), nil
	}
	return conversation.Goto(StateRegMentorRole, say(b.t.T("reg.ask_role"), b.roleKeyboard())).
		With(keyMentorName, v), nil
}

func (b *Bot) mentorRole(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
	role := model.MentorRole(in.Event.Payload[len(cbRolePrefix):])
	branch, ok := b.roleBranches[role]
	if !ok {
		return conversation.Stay(say(b.t.T("reg.ask_role"), b.roleKeyboard())), nil
	}
	return branch(in), nil
}

func (b *Bot) mentorRoleText(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Stay(say(b.t.T("reg.use_buttons"), b.roleKeyboard())), nil
}

func (b *Bot) submitMail(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	addr, err := NormalizeMail(in.Event.Payload)
	if err != nil {
		return conversation.Stay(say(b.t.T("reg.bad_mail"), nil)), nil
	}
	if err := b.sendCode(ctx, in.UserID, addr); err != nil {
		if errors.Is(err, domain.ErrMailDelivery) {
			return conversation.Stay(say(b.t.T("reg.mail_failed"), nil)), nil
		}
		return conversation.Outcome{}, err
	}
	return conversation.Goto(StateRegVerify, say(b.t.T("reg.code_sent", addr), b.verifyKeyboard())).
		With(keyMail, addr), nil
}

func (b *Bot) changeMail(context.Context, *conversation.Input) (conversation.Outcome, error) {
	return conversation.Goto(StateRegMail, say(b.t.T("reg.ask_mail"), nil)).Without(keyMail), nil
}

func (b *Bot) resendCode(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	addr := in.Scratch.Value(keyMail)
	if addr == "" {
		return conversation.Goto(StateRegMail, say(b.t.T("reg.ask_mail"), nil)), nil
	}
	if err := b.sendCode(ctx, in.UserID, addr); err != nil {
		if errors.Is(err, domain.ErrMailDelivery) {
			return conversation.Stay(say(b.t.T("reg.mail_failed"), b.verifyKeyboard())), nil
		}
		return conversation.Outcome{}, err
	}
	return conversation.Stay(say(b.t.T("reg.code_sent", addr), b.verifyKeyboard())), nil
}

// sendCode issues a fresh code for userID and mails it. Delivery failures wrap
// domain.ErrMailDelivery.
func (b *Bot) sendCode(ctx context.Context, userID int64, addr string) error {
	log := logging.With(ctx, b.log)
	code, err := b.tokens.Issue(ctx, userID)
	if err != nil {
		return fmt.Errorf("issue verification code: %w", err)
	}
	minutes := int(b.flow.TokenTTL / time.Minute)
	if minutes <= 0 {
		minutes = int(verification.DefaultTTL / time.Minute)
	}
	err = b.mailer.Send(ctx, adapter.MailMessage{
		To:      addr,
		Subject: b.subject,
		Body:    b.t.T("mail.body", code, minutes),
	})
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("mail", logging.Redact(addr, b.dev)).Msg("verification mail not sent")
		if errors.Is(err, domain.ErrMailDelivery) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrMailDelivery, err)
	}
	log.Info().Int64("user_id", userID).Str("mail", logging.Redact(addr, b.dev)).Msg("verification mail sent")
	return nil
}

func (b *Bot) verifyCode(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	res, err := b.tokens.Verify(ctx, in.UserID, in.Event.Payload)
	if err != nil {
		return conversation.Outcome{}, fmt.Errorf("verify code: %w", err)
	}
	switch res {
	case verification.Matched:
		return b.completeRegistration(ctx, in)
	case verification.Mismatch:
		return conversation.Stay(say(b.t.T("reg.code_mismatch"), b.verifyKeyboard())), nil
	case verification.Expired:
		return conversation.Goto(StateRegMail, say(b.t.T("reg.code_expired"), nil)).Without(keyMail), nil
	default:
		return conversation.Goto(StateRegMail, say(b.t.T("reg.code_missing"), nil)).Without(keyMail), nil
	}
}

// completeRegistration stores the profile. The session only leaves the
// registration group once the write has committed.
func (b *Bot) completeRegistration(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	log := logging.With(ctx, b.log)
	defer logging.TraceDuration(log, "Bot.completeRegistration")()

	s := in.Scratch
	p, err := model.NewProfile(in.UserID,
		s.Value(keyNickname), s.Value(keyFullName), s.Value(keySchool), s.Value(keyPhone),
		s.Value(keyMail), s.Value(keyMentorName), s.Value(keyMentorPost))
	if err != nil {
		log.Error().Err(err).Int64("user_id", in.UserID).Strs("keys", s.Keys()).Msg("incomplete registration data")
		return conversation.Goto(StateBeforeRegistration,
			say(b.t.T("error.generic"), b.registerKeyboard())).ClearScratch(), nil
	}

	err = b.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return b.profiles.Register(ctx, tx, p)
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", in.UserID).Msg("persist profile")
		return conversation.Goto(StateRegMail,
			say(b.t.T("reg.verified"), nil),
			say(b.t.T("reg.persist_failed"), nil),
		).Without(keyMail), nil
	}

	metrics.IncUsersRegistered()
	log.Info().Int64("user_id", in.UserID).Msg("registration completed")
	return conversation.Goto(StateAfterRegistration,
		say(b.t.T("reg.verified"), nil),
		say(b.t.T("reg.done"), b.menuKeyboard()),
		say(b.t.T("reg.welcome"), nil),
		say(b.profileSummary(p, false), nil),
	).ClearScratch(), nil
}
