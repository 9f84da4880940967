package notify

import (
	"context"
	"sync"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// Console records envelopes in memory and logs them instead of sending.
// Send always succeeds. Used in development and tests.
type Console struct {
	from string

	mu   sync.Mutex
	sent []Envelope
}

var _ Backend = (*Console)(nil)

func NewConsole(from string) *Console {
	return &Console{from: from}
}

func (c *Console) Kind() Kind { return KindConsole }

func (c *Console) Send(ctx context.Context, env Envelope) error {
	if env.From == "" {
		env.From = c.from
	}

	c.mu.Lock()
	c.sent = append(c.sent, env)
	c.mu.Unlock()

	slogx.FromContext(ctx).Info("notification recorded",
		"backend", KindConsole.String(),
		"to", env.To,
		"from", env.From,
		"subject", env.Subject,
	)
	return nil
}

// Sent returns a copy of every envelope recorded so far.
func (c *Console) Sent() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope(nil), c.sent...)
}

// Last returns the most recent envelope, if any.
func (c *Console) Last() (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return Envelope{}, false
	}
	return c.sent[len(c.sent)-1], true
}
