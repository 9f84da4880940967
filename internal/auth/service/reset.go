package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/notify"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// DefaultResetTTL is how long a password reset token stays usable.
const DefaultResetTTL = 30 * time.Minute

const (
	resetOpRequest = "request"
	resetOpConsume = "consume"
)

// Notifier delivers an envelope and reports the outcome. *notify.Dispatcher
// satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, env notify.Envelope) notify.DeliveryResult
}

// ResetIssue is the outcome of a reset request. Token is the plaintext value
// and is only ever available here. A failed delivery leaves Warning set; the
// token itself stays valid.
type ResetIssue struct {
	Token    string
	Reset    domain.PasswordReset
	Delivery notify.DeliveryResult
	Warning  error
}

type PasswordResetService struct {
	Store    store.Store
	Notifier Notifier

	Clock  clockx.Clock
	IDs    idx.Source
	Tokens cryptox.TokenGenerator

	TTL     time.Duration
	Metrics *metrics.Metrics

	// BuildEnvelope renders the message for a token. Optional.
	BuildEnvelope func(p domain.Principal, token string, expiresAt time.Time) notify.Envelope
}

// RequestPasswordReset supersedes any outstanding reset for p, issues a new
// one and hands it to the notifier once the transaction has committed.
func (s *PasswordResetService) RequestPasswordReset(ctx context.Context, p domain.Principal) (ResetIssue, error) {
	l := slogx.FromContext(ctx)

	if !domain.IsLive(p) {
		s.Metrics.PasswordReset(resetOpRequest, metrics.ResultInactive)
		return ResetIssue{}, ErrPrincipalInactive
	}

	token, err := s.tokens().Generate()
	if err != nil {
		return ResetIssue{}, err
	}

	now := s.now()
	reset := domain.PasswordReset{
		ID:          s.ids().NewID(),
		PrincipalID: p.ID,
		TokenHash:   cryptox.FingerprintToken(token),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl()),
		Lifecycle:   domain.NewLifecycle(),
	}

	var superseded int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.PasswordResets().InvalidateActivePasswordResets(ctx, p.ID, now)
		if err != nil {
			return err
		}
		superseded = n
		return tx.PasswordResets().CreatePasswordReset(ctx, reset)
	})
	if err != nil {
		s.Metrics.PasswordReset(resetOpRequest, metrics.ResultError)
		return ResetIssue{}, fmt.Errorf("issue password reset: %w", err)
	}

	l.Info("password reset issued",
		"principal_id", p.ID,
		"reset_id", reset.ID,
		"superseded", superseded,
	)

	issue := ResetIssue{Token: token, Reset: reset}
	if s.Notifier != nil {
		issue.Delivery = s.Notifier.Dispatch(ctx, s.envelope(p, token, reset.ExpiresAt))
		if !issue.Delivery.Delivered() {
			issue.Warning = fmt.Errorf("%w: %v", ErrDeliveryFailed, issue.Delivery.Err)
			l.Warn("password reset delivery failed",
				"principal_id", p.ID,
				"reset_id", reset.ID,
				"err", issue.Delivery.Err,
			)
		}
	}

	s.Metrics.PasswordReset(resetOpRequest, metrics.ResultOK)
	return issue, nil
}

// RequestPasswordResetByEmail looks the principal up by email first.
func (s *PasswordResetService) RequestPasswordResetByEmail(ctx context.Context, email string) (ResetIssue, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p, err := s.Store.Principals().GetPrincipalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ResetIssue{}, ErrPrincipalNotFound
		}
		return ResetIssue{}, err
	}
	return s.RequestPasswordReset(ctx, p)
}

// ConsumePasswordReset redeems token once: it stores newCredentialHash and
// revokes every open session of the principal. Of concurrent callers with the
// same token exactly one succeeds; the rest get ErrResetTokenAlreadyUsed.
func (s *PasswordResetService) ConsumePasswordReset(ctx context.Context, token, newCredentialHash string) error {
	l := slogx.FromContext(ctx)
	now := s.now()
	fp := cryptox.FingerprintToken(token)

	var (
		principalID idx.ID
		revoked     int64
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		reset, err := tx.PasswordResets().GetPasswordResetByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetTokenInvalid
			}
			return err
		}

		switch {
		case !domain.IsLive(reset):
			return ErrResetTokenInvalid
		case reset.Used:
			return ErrResetTokenAlreadyUsed
		case reset.Expired(now):
			return ErrResetTokenExpired
		}

		err = tx.PasswordResets().MarkPasswordResetUsed(ctx, reset.ID, now)
		if errors.Is(err, store.ErrConflict) {
			return ErrResetTokenAlreadyUsed
		}
		if err != nil {
			return err
		}

		p, err := tx.Principals().GetPrincipalByID(ctx, reset.PrincipalID)
		if err != nil {
			return err
		}
		if !domain.IsLive(p) {
			return ErrPrincipalInactive
		}

		if err := tx.Principals().UpdateCredentialHash(ctx, p.ID, newCredentialHash, now); err != nil {
			return err
		}

		revoked, err = tx.Sessions().RevokePrincipalSessions(ctx, p.ID, domain.RevokeReasonPasswordReset, now)
		if err != nil {
			return err
		}

		principalID = p.ID
		return nil
	})

	switch {
	case err == nil:
		s.Metrics.PasswordReset(resetOpConsume, metrics.ResultOK)
		l.Info("password reset consumed", "principal_id", principalID, "sessions_revoked", revoked)
		return nil
	case errors.Is(err, ErrResetTokenAlreadyUsed):
		s.Metrics.PasswordReset(resetOpConsume, metrics.ResultUsed)
	case errors.Is(err, ErrResetTokenExpired):
		s.Metrics.PasswordReset(resetOpConsume, metrics.ResultExpired)
	case errors.Is(err, ErrResetTokenInvalid):
		s.Metrics.PasswordReset(resetOpConsume, metrics.ResultInvalid)
	case errors.Is(err, ErrPrincipalInactive):
		s.Metrics.PasswordReset(resetOpConsume, metrics.ResultInactive)
	default:
		s.Metrics.PasswordReset(resetOpConsume, metrics.ResultError)
		return err
	}

	l.Warn("password reset rejected", "reason", err.Error())
	return err
}

func (s *PasswordResetService) envelope(p domain.Principal, token string, expiresAt time.Time) notify.Envelope {
	if s.BuildEnvelope != nil {
		return s.BuildEnvelope(p, token, expiresAt)
	}
	return notify.Envelope{
		To:      p.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nUse this code to reset your password: %s\n\nIt expires at %s.\n",
			p.Username, token, expiresAt.Format(time.RFC1123),
		),
	}
}

func (s *PasswordResetService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *PasswordResetService) ids() idx.Source {
	if s.IDs == nil {
		return idx.ClockSource{Clock: s.Clock}
	}
	return s.IDs
}

func (s *PasswordResetService) tokens() cryptox.TokenGenerator {
	if s.Tokens == nil {
		return cryptox.RandomTokens{}
	}
	return s.Tokens
}

func (s *PasswordResetService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultResetTTL
	}
	return s.TTL
}
