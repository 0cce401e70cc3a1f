package digest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hopeland/leasebot/internal/logger"
)

// ErrEmailDisabled is returned by the stub sender so callers can tell a
// skipped digest from a delivered one.
var ErrEmailDisabled = errors.New("digest: email not configured")

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text
	HTML    string // optional
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends email through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       zerolog.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, log zerolog.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Leasing Bot"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       logger.Component(log, "sendgrid"),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return ErrEmailDisabled
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.log.Error().Err(err).Str("to", msg.To).Msg("sendgrid send failed")
		return fmt.Errorf("digest: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.log.Error().Int("status", resp.StatusCode).Str("body", resp.Body).Str("to", msg.To).Msg("sendgrid returned error status")
		return fmt.Errorf("digest: sendgrid returned status %d", resp.StatusCode)
	}

	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Int("status", resp.StatusCode).Msg("email sent")
	return nil
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	log zerolog.Logger
}

func NewStubEmailSender(log zerolog.Logger) *StubEmailSender {
	return &StubEmailSender{log: logger.Component(log, "email-stub")}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.log.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not configured, skipping")
	return ErrEmailDisabled
}

// NewEmailSender picks SendGrid when configured and the stub otherwise.
func NewEmailSender(cfg SendGridConfig, log zerolog.Logger) EmailSender {
	if sg := NewSendGridSender(cfg, log); sg != nil {
		return sg
	}
	return NewStubEmailSender(log)
}
