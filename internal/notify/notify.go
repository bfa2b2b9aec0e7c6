package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/clinicaplena/agenda-api/internal/booking"
)

// Noop is used when no email provider is configured.
type Noop struct{}

func (Noop) BookingConfirmed(ctx context.Context, r *booking.Reservation) error { return nil }
func (Noop) BookingCancelled(ctx context.Context, r *booking.Reservation) error { return nil }

// EmailNotifier sends booking confirmations and cancellations via
// SendGrid. Callers treat every send as fire-and-forget.
type EmailNotifier struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       zerolog.Logger
}

type EmailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

func NewEmailNotifier(cfg EmailConfig, log zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

func (n *EmailNotifier) BookingConfirmed(ctx context.Context, r *booking.Reservation) error {
	subject := "Agendamento confirmado - " + r.ConfirmationCode
	body := fmt.Sprintf(
		"Olá %s,\n\nSeu agendamento foi confirmado.\n\nData: %s\nHorário: %s\nModalidade: %s\nCódigo de confirmação: %s\n\nGuarde o código para consultar ou cancelar o agendamento.",
		r.ContactName,
		r.Date.Format("02/01/2006"),
		r.TimeSlot,
		r.Modality,
		r.ConfirmationCode,
	)
	return n.send(ctx, r, subject, body)
}

func (n *EmailNotifier) BookingCancelled(ctx context.Context, r *booking.Reservation) error {
	subject := "Agendamento cancelado - " + r.ConfirmationCode
	body := fmt.Sprintf(
		"Olá %s,\n\nSeu agendamento de %s às %s foi cancelado.",
		r.ContactName,
		r.Date.Format("02/01/2006"),
		r.TimeSlot,
	)
	return n.send(ctx, r, subject, body)
}

func (n *EmailNotifier) send(ctx context.Context, r *booking.Reservation, subject, body string) error {
	if r.ContactEmail == "" {
		return nil
	}

	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(r.ContactName, r.ContactEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	n.log.Debug().Str("to", r.ContactEmail).Str("subject", subject).Msg("notification sent")
	return nil
}
