package cryptox_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
)

func TestGenerateKeyPEM(t *testing.T) {
	t.Run("ed25519", func(t *testing.T) {
		pemBytes, err := cryptox.GenerateKeyPEM(cryptox.KeyEd25519)
		require.NoError(t, err)

		block, _ := pem.Decode(pemBytes)
		require.NotNil(t, block)
		require.Equal(t, "PRIVATE KEY", block.Type)

		key, err := cryptox.ParsePrivateKeyPEM(pemBytes)
		require.NoError(t, err)
		edKey, ok := key.(ed25519.PrivateKey)
		require.True(t, ok)
		require.Len(t, edKey, ed25519.PrivateKeySize)
	})

	t.Run("p256", func(t *testing.T) {
		pemBytes, err := cryptox.GenerateKeyPEM(cryptox.KeyP256)
		require.NoError(t, err)

		key, err := cryptox.ParsePrivateKeyPEM(pemBytes)
		require.NoError(t, err)
		ecKey, ok := key.(*ecdsa.PrivateKey)
		require.True(t, ok)
		require.Equal(t, elliptic.P256(), ecKey.Curve)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := cryptox.GenerateKeyPEM("rsa")
		require.Error(t, err)
	})
}

func TestParsePrivateKeyPEMRejectsGarbage(t *testing.T) {
	_, err := cryptox.ParsePrivateKeyPEM([]byte("not pem"))
	require.Error(t, err)

	wrongType := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	_, err = cryptox.ParsePrivateKeyPEM(wrongType)
	require.Error(t, err)
}
