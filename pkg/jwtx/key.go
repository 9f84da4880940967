package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
)

// Algorithm is a supported JWT signing algorithm.
type Algorithm string

const (
	AlgorithmEdDSA Algorithm = "EdDSA"
	AlgorithmES256 Algorithm = "ES256"
)

func (a Algorithm) String() string { return string(a) }

// ParseAlgorithm maps a configuration value to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmEdDSA, AlgorithmES256:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("jwtx: unsupported algorithm %q (supported: EdDSA, ES256)", s)
	}
}

// Key is a signing key with its kid.
type Key struct {
	ID        string
	Algorithm Algorithm
	Private   crypto.Signer
}

// KeyKind is the private key type the algorithm signs with.
func (a Algorithm) KeyKind() (cryptox.KeyKind, error) {
	switch a {
	case AlgorithmEdDSA:
		return cryptox.KeyEd25519, nil
	case AlgorithmES256:
		return cryptox.KeyP256, nil
	default:
		return "", fmt.Errorf("jwtx: unsupported algorithm %q", a)
	}
}

// GenerateKey creates a fresh key with a random kid.
func GenerateKey(alg Algorithm) (Key, error) {
	kind, err := alg.KeyKind()
	if err != nil {
		return Key{}, err
	}

	pemKey, err := cryptox.GenerateKeyPEM(kind)
	if err != nil {
		return Key{}, err
	}
	return KeyFromPEM(alg, "", pemKey)
}

// KeyFromPEM loads a PKCS8 private key. An empty kid gets a random one.
func KeyFromPEM(alg Algorithm, kid string, pemKey []byte) (Key, error) {
	priv, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return Key{}, err
	}

	if kid == "" {
		suffix, err := cryptox.GenerateToken(6)
		if err != nil {
			return Key{}, err
		}
		kid = "postauth-" + suffix
	}

	k := Key{ID: kid, Algorithm: alg, Private: priv}
	return k, k.Validate()
}

// Method returns the golang-jwt signing method for the key.
func (k Key) Method() jwt.SigningMethod {
	if k.Algorithm == AlgorithmES256 {
		return jwt.SigningMethodES256
	}
	return jwt.SigningMethodEdDSA
}

// Validate checks the private key matches the declared algorithm.
func (k Key) Validate() error {
	if k.ID == "" {
		return errors.New("jwtx: key id is required")
	}
	if k.Private == nil {
		return errors.New("jwtx: nil private key")
	}

	switch k.Algorithm {
	case AlgorithmEdDSA:
		if _, ok := k.Private.(ed25519.PrivateKey); !ok {
			return errors.New("jwtx: EdDSA requires an Ed25519 key")
		}
	case AlgorithmES256:
		if _, ok := k.Private.(*ecdsa.PrivateKey); !ok {
			return errors.New("jwtx: ES256 requires an ECDSA P-256 key")
		}
	default:
		return fmt.Errorf("jwtx: unsupported algorithm %q", k.Algorithm)
	}
	return nil
}
