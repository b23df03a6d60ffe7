package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Mailer delivers the email-confirmation message. Delivery is
// fire-and-forget from the caller's perspective: a failure is logged
// and must not fail the request that triggered it.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, name, confirmURL string) error
}

// SMTPConfig carries the outbound-mail credentials.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

type smtpMailer struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPMailer returns a Mailer that delivers over plain SMTP with
// optional auth (auth is skipped when no user is configured).
func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) Mailer {
	return &smtpMailer{cfg: cfg, logger: logger}
}

func (m *smtpMailer) SendConfirmation(ctx context.Context, to, name, confirmURL string) error {
	body := fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: Confirm your SDARS account\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n"+
			"Hello %s,\r\n\r\n"+
			"Confirm your email address to activate your account:\r\n\r\n%s\r\n\r\n"+
			"The link is valid for 24 hours. If you did not register, ignore this message.\r\n",
		to, m.cfg.From, name, confirmURL)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send confirmation mail: %w", err)
	}

	m.logger.Info("confirmation mail sent", "to", to)
	return nil
}

// LogMailer only logs the confirmation link. Used in development and
// tests where no SMTP relay is reachable.
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) SendConfirmation(ctx context.Context, to, name, confirmURL string) error {
	l.Logger.Info("confirmation mail (log only)", "to", to, "url", confirmURL)
	return nil
}
