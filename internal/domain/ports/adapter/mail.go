package adapter

import "context"

type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a single message. Implementations return an error wrapping
// domain.ErrMailDelivery when the relay refuses the message.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
