package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/jwtx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

// DefaultReuseGrace is how long after a rotation the rotated refresh token
// may be presented again without tripping reuse detection.
const DefaultReuseGrace = 10 * time.Second

// SessionService issues, verifies, rotates and revokes sessions. Access
// tokens are JWTs from Codec; refresh tokens are opaque and stored only as a
// fingerprint on the session row.
type SessionService struct {
	Store    store.Store
	Codec    jwtx.Codec
	Verifier domain.CredentialVerifier

	Clock  clockx.Clock
	IDs    idx.Source
	Tokens cryptox.TokenGenerator

	// Revoked is optional.
	Revoked *RevocationCache
	Metrics *metrics.Metrics

	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// ReuseGrace treats a rotated token presented again within this window
	// of its rotation as a lost race rather than theft. Zero means
	// DefaultReuseGrace; negative disables the window.
	ReuseGrace time.Duration
}

// Login checks username and password and opens a session. Unknown users and
// wrong passwords are indistinguishable.
func (s *SessionService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	p, err := s.Store.Principals().GetPrincipalByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login failed", "reason", "unknown_user")
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if !s.Verifier.Verify(password, p.CredentialHash) {
		l.Info("login failed", "reason", "bad_password", "principal_id", p.ID)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	return s.IssueSession(ctx, p)
}

// IssueSession opens a new session for an active, live principal.
func (s *SessionService) IssueSession(ctx context.Context, p domain.Principal) (domain.TokenPair, error) {
	if !domain.IsLive(p) {
		return domain.TokenPair{}, ErrPrincipalInactive
	}

	now := s.now()
	session, pair, err := s.mint(p, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	s.Metrics.SessionIssued()
	slogx.FromContext(ctx).Info("session issued",
		"principal_id", p.ID,
		"session_id", session.ID,
		"expires_at", session.ExpiresAt,
	)
	return pair, nil
}

// VerifyAccessToken checks signature and expiry, then that the owning session
// is still live and unrevoked. Only reads; no lock is taken.
func (s *SessionService) VerifyAccessToken(ctx context.Context, token string) (domain.Identity, error) {
	id, err := s.verify(ctx, token)
	switch {
	case err == nil:
		s.Metrics.TokenVerified(metrics.ResultOK)
	case errors.Is(err, ErrTokenExpired):
		s.Metrics.TokenVerified(metrics.ResultExpired)
	case errors.Is(err, ErrSessionRevoked):
		s.Metrics.TokenVerified(metrics.ResultRevoked)
	case errors.Is(err, ErrTokenInvalid):
		s.Metrics.TokenVerified(metrics.ResultInvalid)
	default:
		s.Metrics.TokenVerified(metrics.ResultError)
	}
	return id, err
}

func (s *SessionService) verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.Codec.Decode(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.Identity{}, ErrTokenExpired
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	identity, err := identityFromClaims(claims)
	if err != nil {
		return domain.Identity{}, err
	}

	if s.Revoked.Contains(identity.SessionID) {
		return domain.Identity{}, ErrSessionRevoked
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, identity.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrSessionRevoked
		}
		return domain.Identity{}, err
	}

	if session.PrincipalID != identity.PrincipalID {
		return domain.Identity{}, fmt.Errorf("%w: subject does not own session", ErrTokenInvalid)
	}

	switch session.State(s.now()) {
	case domain.SessionActive:
		return identity, nil
	case domain.SessionExpired:
		return domain.Identity{}, ErrTokenExpired
	default:
		s.Revoked.Add(session.ID)
		return domain.Identity{}, ErrSessionRevoked
	}
}

// Refresh exchanges a refresh token for a new pair. The old session is
// revoked and its successor created in one transaction, so exactly one
// concurrent caller wins. Presenting an already rotated token is treated as
// theft: the whole successor chain is revoked.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now()
	fp := cryptox.FingerprintToken(refreshToken)

	var (
		pair   domain.TokenPair
		reused domain.Session
	)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		old, err := tx.Sessions().GetSessionByRefreshHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenInvalid
			}
			return err
		}

		switch old.State(now) {
		case domain.SessionDeleted:
			return ErrSessionRevoked
		case domain.SessionRevoked:
			if old.RevokeReason == domain.RevokeReasonRotated && !s.withinGrace(old, now) {
				reused = old
			}
			return ErrSessionRevoked
		case domain.SessionExpired:
			return ErrTokenExpired
		}

		p, err := tx.Principals().GetPrincipalByID(ctx, old.PrincipalID)
		if err != nil {
			return err
		}
		if !domain.IsLive(p) {
			return ErrPrincipalInactive
		}

		next, nextPair, err := s.mint(p, now)
		if err != nil {
			return err
		}

		if err := tx.Sessions().CreateSession(ctx, next); err != nil {
			return err
		}

		err = tx.Sessions().RevokeSession(ctx, old.ID, store.Revocation{
			Reason:     domain.RevokeReasonRotated,
			At:         now,
			ReplacedBy: next.ID,
		})
		if errors.Is(err, store.ErrConflict) {
			return ErrSessionRevoked
		}
		if err != nil {
			return err
		}

		pair = nextPair
		return nil
	})

	switch {
	case err == nil:
		s.Metrics.Refreshed(metrics.ResultOK)
		s.Metrics.SessionIssued()
		l.Info("session rotated", "session_id", pair.SessionID)
		return pair, nil

	case !reused.ID.IsZero():
		s.Metrics.Refreshed(metrics.ResultReused)
		l.Warn("refresh token reuse detected",
			"session_id", reused.ID,
			"principal_id", reused.PrincipalID,
		)
		if cerr := s.revokeChain(ctx, reused.ReplacedBy, now); cerr != nil {
			l.Error("failed to revoke reused session chain", "err", cerr)
		}
		return domain.TokenPair{}, ErrSessionRevoked

	case errors.Is(err, ErrTokenExpired):
		s.Metrics.Refreshed(metrics.ResultExpired)
	case errors.Is(err, ErrSessionRevoked):
		s.Metrics.Refreshed(metrics.ResultRevoked)
	case errors.Is(err, ErrTokenInvalid):
		s.Metrics.Refreshed(metrics.ResultInvalid)
	default:
		s.Metrics.Refreshed(metrics.ResultError)
	}
	return domain.TokenPair{}, err
}

// revokeChain follows replaced_by links from id and revokes every session
// still open on the way.
func (s *SessionService) revokeChain(ctx context.Context, id idx.ID, now time.Time) error {
	var revoked []idx.ID

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		seen := make(map[idx.ID]struct{})
		for !id.IsZero() {
			if _, loop := seen[id]; loop {
				return nil
			}
			seen[id] = struct{}{}

			next, err := tx.Sessions().GetSessionByID(ctx, id)
			if err != nil {
				return err
			}

			err = tx.Sessions().RevokeSession(ctx, id, store.Revocation{
				Reason: domain.RevokeReasonReuseDetected,
				At:     now,
			})
			if err != nil && !errors.Is(err, store.ErrConflict) {
				return err
			}
			revoked = append(revoked, id)
			id = next.ReplacedBy
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, sid := range revoked {
		s.Revoked.Add(sid)
	}
	return nil
}

// Revoke ends a session. Revoking an already revoked session is a no-op.
func (s *SessionService) Revoke(ctx context.Context, sessionID idx.ID) error {
	err := s.Store.Sessions().RevokeSession(ctx, sessionID, store.Revocation{
		Reason: domain.RevokeReasonLogout,
		At:     s.now(),
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrSessionNotFound
	case err != nil && !errors.Is(err, store.ErrConflict):
		return err
	}

	s.Revoked.Add(sessionID)
	slogx.FromContext(ctx).Info("session revoked", "session_id", sessionID)
	return nil
}

// RevokeAll ends every open session of a principal and reports how many.
func (s *SessionService) RevokeAll(ctx context.Context, principalID idx.ID) (int64, error) {
	n, err := s.Store.Sessions().RevokePrincipalSessions(ctx, principalID, domain.RevokeReasonLogoutAll, s.now())
	if err != nil {
		return 0, err
	}
	slogx.FromContext(ctx).Info("all sessions revoked", "principal_id", principalID, "count", n)
	return n, nil
}

// mint builds a session row and its token pair without persisting anything.
// The access token never outlives its session.
func (s *SessionService) mint(p domain.Principal, now time.Time) (domain.Session, domain.TokenPair, error) {
	refresh, err := s.tokens().Generate()
	if err != nil {
		return domain.Session{}, domain.TokenPair{}, err
	}

	session := domain.Session{
		ID:          s.ids().NewID(),
		PrincipalID: p.ID,
		RefreshHash: cryptox.FingerprintToken(refresh),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.refreshTTL()),
		Lifecycle:   domain.NewLifecycle(),
	}

	accessExp := now.Add(s.accessTTL())
	if accessExp.After(session.ExpiresAt) {
		accessExp = session.ExpiresAt
	}

	claims := jwtx.NewAccessClaims(
		p.ID.String(), session.ID.String(), p.Role.String(),
		s.Issuer, s.Audience, now, accessExp,
	)
	access, err := s.Codec.Encode(claims)
	if err != nil {
		return domain.Session{}, domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	return session, domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(accessExp.Sub(now).Seconds()),
		SessionID:        session.ID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *SessionService) withinGrace(old domain.Session, now time.Time) bool {
	grace := s.ReuseGrace
	if grace == 0 {
		grace = DefaultReuseGrace
	}
	if grace < 0 || old.RevokedAt == nil {
		return false
	}
	return now.Sub(*old.RevokedAt) < grace
}

func identityFromClaims(c jwtx.Claims) (domain.Identity, error) {
	pid, err := idx.Parse(c.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	sid, err := idx.Parse(c.SID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: bad session id", ErrTokenInvalid)
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return domain.Identity{
		PrincipalID: pid,
		SessionID:   sid,
		Role:        role,
		IssuedAt:    c.IssuedAt.Time.UTC(),
		ExpiresAt:   c.ExpiresAt.Time.UTC(),
	}, nil
}

func (s *SessionService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *SessionService) ids() idx.Source {
	if s.IDs == nil {
		return idx.ClockSource{Clock: s.Clock}
	}
	return s.IDs
}

func (s *SessionService) tokens() cryptox.TokenGenerator {
	if s.Tokens == nil {
		return cryptox.RandomTokens{}
	}
	return s.Tokens
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}

func (s *SessionService) refreshTTL() time.Duration {
	if s.RefreshTTL <= 0 {
		return jwtx.DefaultRefreshTokenTTL
	}
	return s.RefreshTTL
}
