package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/jwtx"
)

// InitSigningKey returns the access token signing key.
//
// Without AUTH_SIGNING_KEY_FILE the key is generated on startup and held in
// memory only, so every outstanding access token becomes invalid on restart.
// With it, the key is read from the file (created on first start) and its kid
// is derived from the key material so tokens survive restarts.
func InitSigningKey(cfg Config, logger *slog.Logger) (jwtx.Key, error) {
	alg, err := jwtx.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return jwtx.Key{}, err
	}

	if cfg.SigningKeyFile == "" {
		key, err := jwtx.GenerateKey(alg)
		if err != nil {
			return jwtx.Key{}, fmt.Errorf("generate signing key: %w", err)
		}
		logger.Info("ephemeral signing key generated", "algorithm", alg, "kid", key.ID)
		return key, nil
	}

	pemKey, created, err := loadOrCreateKeyPEM(cfg.SigningKeyFile, alg)
	if err != nil {
		return jwtx.Key{}, err
	}

	key, err := jwtx.KeyFromPEM(alg, kidFor(pemKey), pemKey)
	if err != nil {
		return jwtx.Key{}, fmt.Errorf("load signing key %s: %w", cfg.SigningKeyFile, err)
	}

	logger.Info("signing key loaded",
		"algorithm", alg,
		"kid", key.ID,
		"path", cfg.SigningKeyFile,
		"created", created,
	)
	return key, nil
}

func loadOrCreateKeyPEM(path string, alg jwtx.Algorithm) ([]byte, bool, error) {
	path = filepath.Clean(path)

	b, err := os.ReadFile(path)
	if err == nil {
		return b, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	kind, err := alg.KeyKind()
	if err != nil {
		return nil, false, err
	}
	b, err = cryptox.GenerateKeyPEM(kind)
	if err != nil {
		return nil, false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, false, err
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// kidFor derives a stable key id from the key material.
func kidFor(pemKey []byte) string {
	return "postauth-" + cryptox.FingerprintToken(string(pemKey))[:12]
}
