// Package notify selects a notification backend by configuration and
// delivers envelopes through it on a bounded worker pool.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownProviderKind = errors.New("notify: unknown provider kind")
	ErrDeliveryTimeout     = errors.New("notify: delivery timed out")
	ErrDispatcherClosed    = errors.New("notify: dispatcher closed")
)

// Kind is the closed set of notification providers.
type Kind uint8

const (
	KindConsole Kind = iota
	KindSMTP

	kindCount
)

var kindNames = [kindCount]string{
	KindConsole: "console",
	KindSMTP:    "smtp",
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind maps a configuration value to a Kind. Unknown values are a
// startup error, never a silent default.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (supported: console, smtp)", ErrUnknownProviderKind, s)
}

// Envelope is one outbound message. From is optional; backends fall back to
// their configured sender.
type Envelope struct {
	To      string
	From    string
	Subject string
	Body    string
}

// Backend delivers envelopes over one transport.
type Backend interface {
	Kind() Kind
	Send(ctx context.Context, env Envelope) error
}

// DeliveryResult is the observable outcome of a dispatch. Err is nil on success.
type DeliveryResult struct {
	Kind     Kind
	To       string
	Err      error
	Duration time.Duration
}

// Delivered reports whether the backend accepted the envelope.
func (r DeliveryResult) Delivered() bool { return r.Err == nil }

// Options configures every backend Select can build.
type Options struct {
	// From is the default sender address.
	From string

	SMTP SMTPConfig
}

// Select builds the backend for kind. The switch is exhaustive over Kind.
func Select(kind Kind, opts Options) (Backend, error) {
	switch kind {
	case KindConsole:
		return NewConsole(opts.From), nil
	case KindSMTP:
		cfg := opts.SMTP
		if cfg.From == "" {
			cfg.From = opts.From
		}
		return NewSMTP(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderKind, kind)
	}
}
