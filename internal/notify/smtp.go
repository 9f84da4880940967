package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/go-mail/mail"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// SMTP TLS modes.
const (
	TLSModeAuto     = "auto"     // STARTTLS when offered
	TLSModeStartTLS = "starttls" // STARTTLS required
	TLSModeSSL      = "ssl"      // implicit TLS
	TLSModeNone     = "none"     // plaintext
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLSMode  string
	Timeout  time.Duration

	// InsecureSkipVerify is for local relays only.
	InsecureSkipVerify bool
}

// Validate checks the settings needed to dial.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return errors.New("notify: smtp host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("notify: invalid smtp port %d", c.Port)
	}
	if c.From == "" {
		return errors.New("notify: smtp sender address is required")
	}
	switch strings.ToLower(c.TLSMode) {
	case "", TLSModeAuto, TLSModeStartTLS, TLSModeSSL, TLSModeNone:
		return nil
	default:
		return fmt.Errorf("notify: unknown smtp tls mode %q", c.TLSMode)
	}
}

// SMTP sends plain-text mail with go-mail.
type SMTP struct {
	cfg SMTPConfig
}

var _ Backend = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TLSMode == "" {
		cfg.TLSMode = TLSModeAuto
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTP{cfg: cfg}, nil
}

func (s *SMTP) Kind() Kind { return KindSMTP }

// Send dials, delivers and hangs up. go-mail has no context support, so the
// dialer timeout is the only bound here; Dispatcher adds the caller-side one.
func (s *SMTP) Send(ctx context.Context, env Envelope) error {
	log := slogx.FromContext(ctx).With(
		"backend", KindSMTP.String(),
		"host", s.cfg.Host,
		"port", s.cfg.Port,
	)

	if err := ctx.Err(); err != nil {
		return err
	}

	d := s.dialer()
	if err := d.DialAndSend(s.message(env)); err != nil {
		log.Error("smtp send failed", "err", err)
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Debug("smtp send ok", "subject", env.Subject)
	return nil
}

func (s *SMTP) message(env Envelope) *mail.Message {
	from := env.From
	if from == "" {
		from = s.cfg.From
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", env.To)
	m.SetHeader("Subject", env.Subject)
	m.SetBody("text/plain", env.Body)
	return m
}

func (s *SMTP) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.Timeout = s.cfg.Timeout
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // #nosec G402 -- opt-in for local relays
	}

	switch strings.ToLower(s.cfg.TLSMode) {
	case TLSModeSSL:
		d.SSL = true
	case TLSModeStartTLS:
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case TLSModeNone:
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return d
}
