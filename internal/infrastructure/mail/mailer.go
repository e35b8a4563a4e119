package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"github.com/torqueworks/workshop-api/internal/api/metrics"
)

// Config captures the SMTP settings for outbound mail.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers transactional mail over SMTP using go-mail.
type SMTPMailer struct {
	client *gomail.Client
	from   string
	log    zerolog.Logger
}

// NewSMTPMailer builds the SMTP client. Connections are dialed per send.
func NewSMTPMailer(cfg Config, log zerolog.Logger) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, log: log}, nil
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, name, code string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour verification code is %s. It expires in 3 hours.\n\nThe Workshop team",
		name, code,
	)
	return m.send(ctx, "verification", to, "Verify your account", body)
}

func (m *SMTPMailer) SendPasswordResetCode(ctx context.Context, to, name, code string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour password reset code is %s. It expires in 1 hour.\n\nIf you did not request this, ignore this email.\n\nThe Workshop team",
		name, code,
	)
	return m.send(ctx, "password_reset", to, "Reset your password", body)
}

func (m *SMTPMailer) send(ctx context.Context, kind, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		metrics.EmailsSentTotal.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("send mail: %w", err)
	}

	metrics.EmailsSentTotal.WithLabelValues(kind, "ok").Inc()
	m.log.Debug().Str("to", to).Str("kind", kind).Msg("email sent")
	return nil
}
