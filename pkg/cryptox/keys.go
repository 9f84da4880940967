package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// KeyKind names a supported asymmetric signing key type.
type KeyKind string

const (
	KeyEd25519 KeyKind = "ed25519"
	KeyP256    KeyKind = "p256"
)

// GenerateKeyPEM generates a private key of the given kind and returns it as a
// PKCS8 "PRIVATE KEY" PEM block.
func GenerateKeyPEM(kind KeyKind) ([]byte, error) {
	var key crypto.Signer
	var err error

	switch kind {
	case KeyEd25519:
		_, key, err = ed25519.GenerateKey(rand.Reader)
	case KeyP256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("cryptox: unsupported key kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate %s key: %w", kind, err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM decodes a PKCS8 PEM block produced by GenerateKeyPEM.
func ParsePrivateKeyPEM(pemKey []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("cryptox: invalid PEM")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("cryptox: expected PRIVATE KEY, got %q", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}

	signer, ok := priv.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("cryptox: %T is not a signing key", priv)
	}
	return signer, nil
}
