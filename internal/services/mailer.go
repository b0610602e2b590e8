package services

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/yukikurage/projecthub-api/internal/config"
)

// Mailer sends notification emails. Callers in this package treat sends as
// best-effort: a failed send is logged and never fails the operation that
// triggered it.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates a Mailer for the configured SMTP relay.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPMailer{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth: auth,
		from: cfg.SMTPFrom,
	}
}

// Send delivers a single HTML email.
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, htmlBody)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs mail instead of sending it. Used when no SMTP relay is
// configured, and in tests.
type LogMailer struct{}

// Send logs the message and always succeeds.
func (m *LogMailer) Send(to, subject, _ string) error {
	log.Printf("mail (not sent): to=%s subject=%q", to, subject)
	return nil
}
