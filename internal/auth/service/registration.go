package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/notify"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// MinPasswordLength applies to registration and to the new password of a reset.
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

// Registration is a request to create a principal.
type Registration struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// Normalize lowercases and trims the identifying fields.
func (r Registration) Normalize() Registration {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return r
}

// Validate reports the first problem with r, wrapped in ErrInvalidRegistration.
func (r Registration) Validate() error {
	switch {
	case !usernamePattern.MatchString(r.Username):
		return fmt.Errorf("%w: username must be 3-32 characters of a-z, 0-9, '.', '_' or '-'", ErrInvalidRegistration)
	case r.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidRegistration)
	case utf8.RuneCountInString(r.Password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, MinPasswordLength)
	case !r.Role.Valid() || r.Role == domain.RoleGuest:
		return fmt.Errorf("%w: role %s cannot be registered", ErrInvalidRegistration, r.Role)
	}

	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Address != r.Email {
		return fmt.Errorf("%w: email is not a valid address", ErrInvalidRegistration)
	}
	return nil
}

// RegistrationService creates principals and welcomes them.
type RegistrationService struct {
	Store    store.Store
	Hasher   domain.CredentialHasher
	Notifier Notifier

	Clock   clockx.Clock
	IDs     idx.Source
	Metrics *metrics.Metrics

	// BuildEnvelope renders the welcome message. Optional.
	BuildEnvelope func(p domain.Principal) notify.Envelope
}

// Register creates an active principal. Usernames and emails are unique;
// a clash returns ErrPrincipalExists. The welcome message is sent after the
// principal is stored and a failed delivery is only logged.
func (s *RegistrationService) Register(ctx context.Context, req Registration) (domain.Principal, error) {
	l := slogx.FromContext(ctx)

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		s.Metrics.Registered(metrics.ResultInvalid)
		return domain.Principal{}, err
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		s.Metrics.Registered(metrics.ResultError)
		return domain.Principal{}, fmt.Errorf("hash credential: %w", err)
	}

	now := s.now()
	p := domain.Principal{
		ID:             s.ids().NewID(),
		Username:       req.Username,
		Email:          req.Email,
		CredentialHash: hash,
		Role:           req.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
		Lifecycle:      domain.NewLifecycle(),
	}

	err = s.Store.Principals().CreatePrincipal(ctx, p)
	if errors.Is(err, store.ErrAlreadyExists) {
		s.Metrics.Registered(metrics.ResultExists)
		return domain.Principal{}, ErrPrincipalExists
	}
	if err != nil {
		s.Metrics.Registered(metrics.ResultError)
		return domain.Principal{}, fmt.Errorf("create principal: %w", err)
	}

	s.Metrics.Registered(metrics.ResultOK)
	l.Info("principal registered", "principal_id", p.ID, "role", p.Role.String())

	if s.Notifier != nil {
		res := s.Notifier.Dispatch(ctx, s.envelope(p))
		if !res.Delivered() {
			l.Warn("welcome delivery failed", "principal_id", p.ID, "err", res.Err)
		}
	}

	return p, nil
}

// Bootstrap registers req unless a principal with that username already
// exists. It reports whether a principal was created.
func (s *RegistrationService) Bootstrap(ctx context.Context, req Registration) (bool, error) {
	req = req.Normalize()

	_, err := s.Store.Principals().GetPrincipalByUsername(ctx, req.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	if _, err := s.Register(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RegistrationService) envelope(p domain.Principal) notify.Envelope {
	if s.BuildEnvelope != nil {
		return s.BuildEnvelope(p)
	}
	return notify.Envelope{
		To:      p.Email,
		Subject: "Welcome",
		Body:    fmt.Sprintf("Hi %s,\n\nYour account is ready. Sign in with the username %q.\n", p.Username, p.Username),
	}
}

func (s *RegistrationService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *RegistrationService) ids() idx.Source {
	if s.IDs == nil {
		return idx.ClockSource{Clock: s.Clock}
	}
	return s.IDs
}
