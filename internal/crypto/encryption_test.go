package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyBase64 = "dGVzdC1rZXktMTIzNDU2Nzg5MDEyMzQ1Njc4OTAxMjM="

func TestNewEncryptor(t *testing.T) {
	t.Run("accepts a 32-byte key", func(t *testing.T) {
		encryptor, err := NewEncryptor(testKeyBase64)
		require.NoError(t, err)
		assert.NotNil(t, encryptor)
	})

	t.Run("rejects a key of the wrong length", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("short"))
		_, err := NewEncryptor(short)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := NewEncryptor("not-valid-base64!!!")
		assert.Error(t, err)
	})
}

func TestSealAndUnsealToken(t *testing.T) {
	encryptor, err := NewEncryptor(testKeyBase64)
	require.NoError(t, err)

	t.Run("round-trips a payload", func(t *testing.T) {
		payload := []byte(`{"username":"user@example.com","password":"secret"}`)

		token, err := encryptor.SealToken(payload)
		require.NoError(t, err)
		assert.NotContains(t, token, "secret", "token must not leak the payload")

		unsealed, err := encryptor.UnsealToken(token)
		require.NoError(t, err)
		assert.Equal(t, payload, unsealed)
	})

	t.Run("same payload seals to different tokens", func(t *testing.T) {
		first, err := encryptor.SealToken([]byte("payload"))
		require.NoError(t, err)
		second, err := encryptor.SealToken([]byte("payload"))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("tampered token fails to unseal", func(t *testing.T) {
		token, err := encryptor.SealToken([]byte("payload"))
		require.NoError(t, err)

		tampered := []byte(token)
		mid := len(tampered) / 2
		if tampered[mid] == 'A' {
			tampered[mid] = 'B'
		} else {
			tampered[mid] = 'A'
		}

		_, err = encryptor.UnsealToken(string(tampered))
		assert.Error(t, err)
	})

	t.Run("token sealed with a different key fails", func(t *testing.T) {
		otherKey := base64.StdEncoding.EncodeToString([]byte("another-key-0123456789012345678x"))
		other, err := NewEncryptor(otherKey)
		require.NoError(t, err)

		token, err := other.SealToken([]byte("payload"))
		require.NoError(t, err)

		_, err = encryptor.UnsealToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage input fails cleanly", func(t *testing.T) {
		_, err := encryptor.UnsealToken("::::not base64::::")
		assert.Error(t, err)

		_, err = encryptor.UnsealToken("c2hvcnQ")
		assert.Error(t, err)
	})
}
