package jwtx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
)

// Codec turns claims into an opaque signed token and back. Session logic
// only ever talks to a Codec, so the signing algorithm can change freely.
type Codec interface {
	Encode(Claims) (string, error)
	Decode(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Options captures the expectations enforced on Decode.
type Options struct {
	// Issuer is stamped by callers and required on Decode. Empty means "don't care".
	Issuer string

	// Audience values the token must contain. Empty means "don't care".
	Audience []string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration

	// Clock drives exp/nbf validation. Defaults to clockx.System.
	Clock clockx.Clock
}

// KeyRing is a Codec signing with one active key and verifying against every
// key it has ever held, so tokens survive a rotation until they expire.
type KeyRing struct {
	opts Options

	mu     sync.RWMutex
	active Key
	keys   map[string]Key
}

var _ Codec = (*KeyRing)(nil)

// NewKeyRing creates a KeyRing signing with active.
func NewKeyRing(opts Options, active Key) (*KeyRing, error) {
	if err := active.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clockx.System{}
	}

	return &KeyRing{
		opts:   opts,
		active: active,
		keys:   map[string]Key{active.ID: active},
	}, nil
}

// Rotate makes next the signing key. Earlier keys remain valid for verification.
func (k *KeyRing) Rotate(next Key) error {
	if err := next.Validate(); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.active = next
	k.keys[next.ID] = next
	return nil
}

// ActiveKID returns the kid new tokens are signed with.
func (k *KeyRing) ActiveKID() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.active.ID
}

// Encode signs claims with the active key.
func (k *KeyRing) Encode(claims Claims) (string, error) {
	k.mu.RLock()
	key := k.active
	k.mu.RUnlock()

	t := jwt.NewWithClaims(key.Method(), claims)
	t.Header["kid"] = key.ID
	return t.SignedString(key.Private)
}

// Decode verifies the signature, exp and nbf against the configured clock,
// then issuer, audience and required claims. Expiry is reported as
// ErrExpired and kept apart from every other failure.
func (k *KeyRing) Decode(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{AlgorithmEdDSA.String(), AlgorithmES256.String()}),
		jwt.WithTimeFunc(k.opts.Clock.Now),
		jwt.WithLeeway(k.opts.Leeway),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, k.lookup)
	if err != nil {
		return Claims{}, classify(err)
	}

	if err := claims.Check(k.opts.Issuer, k.opts.Audience); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func (k *KeyRing) lookup(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}

	k.mu.RLock()
	key, ok := k.keys[kid]
	k.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownKID
	}

	if t.Method.Alg() != key.Algorithm.String() {
		return nil, ErrAlgMismatch
	}
	return key.Private.Public(), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, ErrAlgMismatch), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
