package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/example/meeting-booking/internal/scheduler"
)

// SenderName is the display name on every invitation.
const SenderName = "Meeting Room Booking"

// ErrIncompleteCredential is returned when a send is attempted without both
// an address and an authorization code.
var ErrIncompleteCredential = errors.New("mailer: SMTP credential requires email and secret")

// Sender delivers one rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, cred scheduler.Credential, to string, msg Message) error
}

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host       string
	Port       int
	Timeout    time.Duration
	SkipVerify bool
}

// SMTPSender sends through an implicit-TLS SMTP server with PLAIN auth.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a sender. Zero fields fall back to smtp.139.com:465
// with a 10 second timeout.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Host == "" {
		cfg.Host = "smtp.139.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

// Send authenticates as cred and delivers msg to to.
func (s *SMTPSender) Send(ctx context.Context, cred scheduler.Credential, to string, msg Message) error {
	if !cred.Complete() {
		return ErrIncompleteCredential
	}

	m, err := buildMessage(cred.Email, to, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cred.Email),
		mail.WithPassword(cred.Secret),
		mail.WithTimeout(s.cfg.Timeout),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         s.cfg.Host,
			InsecureSkipVerify: s.cfg.SkipVerify, //nolint:gosec // opt-in for providers with broken chains
			MinVersion:         tls.VersionTLS12,
		}),
	)
	if err != nil {
		return fmt.Errorf("mailer: configure SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mailer: send to %s via %s:%d: %w", to, s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

func buildMessage(from, to string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(SenderName, from); err != nil {
		return nil, fmt.Errorf("mailer: invalid sender %q: %w", from, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("mailer: invalid recipient %q: %w", to, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	if len(msg.Calendar) > 0 {
		m.AddAlternativeString(mail.ContentType("text/calendar; method=REQUEST"), string(msg.Calendar))
	}
	return m, nil
}
