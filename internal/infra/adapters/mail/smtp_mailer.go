package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"telegram-contest-bot/internal/config"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/infra/metrics"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

// relay is the part of *gomail.Client the mailer needs.
type relay interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer sends plain-text mail through an authenticated SMTP relay.
type SMTPMailer struct {
	relay  relay
	sender string
	log    *zerolog.Logger
	dev    bool
}

// NewSMTPMailer configures the relay client. Port 465 uses implicit TLS,
// any other port requires STARTTLS.
func NewSMTPMailer(cfg config.MailConfig, logger *zerolog.Logger, dev bool) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("%w: smtp host and sender are required", domain.ErrInvalidArgument)
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTimeout(cfg.Timeout),
	}
	if cfg.SMTPPort == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	cli, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return newSMTPMailer(cli, cfg.Sender, logger, dev), nil
}

func newSMTPMailer(r relay, sender string, logger *zerolog.Logger, dev bool) *SMTPMailer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SMTPMailer{relay: r, sender: sender, log: logging.Component(logger, "mailer"), dev: dev}
}

func (m *SMTPMailer) Send(ctx context.Context, msg adapter.MailMessage) error {
	log := logging.With(ctx, m.log)
	defer logging.TraceDuration(log, "SMTPMailer.Send")()

	out, err := buildMessage(m.sender, msg)
	if err != nil {
		metrics.IncMail("failed")
		return fmt.Errorf("%w: %w", domain.ErrMailDelivery, err)
	}
	if err := m.relay.DialAndSendWithContext(ctx, out); err != nil {
		metrics.IncMail("failed")
		log.Error().Err(err).Str("to", logging.Redact(msg.To, m.dev)).Msg("smtp send")
		return fmt.Errorf("%w: %w", domain.ErrMailDelivery, err)
	}
	metrics.IncMail("sent")
	log.Info().Str("to", logging.Redact(msg.To, m.dev)).Msg("mail sent")
	return nil
}

func buildMessage(sender string, msg adapter.MailMessage) (*gomail.Msg, error) {
	if msg.To == "" {
		return nil, errors.New("empty recipient")
	}
	out := gomail.NewMsg()
	if err := out.From(sender); err != nil {
		return nil, fmt.Errorf("sender %q: %w", sender, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}
