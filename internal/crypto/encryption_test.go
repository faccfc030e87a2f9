package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key := make([]byte, keySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)
	return c
}

func TestEncryptDecrypt(t *testing.T) {
	c := newTestCipher(t)

	t.Run("Should encrypt and decrypt successfully", func(t *testing.T) {
		plaintext := "AIzaSy-test-key"

		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("Should produce different ciphertexts for same plaintext", func(t *testing.T) {
		encrypted1, err := c.Encrypt("same")
		require.NoError(t, err)
		encrypted2, err := c.Encrypt("same")
		require.NoError(t, err)

		// Random nonce per call
		assert.NotEqual(t, encrypted1, encrypted2)
	})

	t.Run("Should fail gracefully with invalid ciphertext", func(t *testing.T) {
		_, err := c.Decrypt("invalid-base64-data!!!")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode base64")
	})

	t.Run("Should fail with ciphertext too short", func(t *testing.T) {
		_, err := c.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ciphertext too short")
	})

	t.Run("Should not open ciphertext sealed with another key", func(t *testing.T) {
		encrypted, err := newTestCipher(t).Encrypt("secret")
		require.NoError(t, err)

		_, err = c.Decrypt(encrypted)
		assert.Error(t, err)
	})

	t.Run("Should handle empty plaintext", func(t *testing.T) {
		encrypted, err := c.Encrypt("")
		require.NoError(t, err)
		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Empty(t, decrypted)
	})
}

func TestNewCipher(t *testing.T) {
	t.Run("Should reject short keys", func(t *testing.T) {
		_, err := NewCipher([]byte("too-short"))
		assert.Error(t, err)
	})
}

func TestDeriveKey(t *testing.T) {
	t.Run("Should use a base64 32-byte key as-is", func(t *testing.T) {
		raw := make([]byte, keySize)
		_, _ = rand.Read(raw)
		assert.Equal(t, raw, DeriveKey(base64.StdEncoding.EncodeToString(raw)))
	})

	t.Run("Should hash raw strings to 32 bytes", func(t *testing.T) {
		key := DeriveKey("test-encryption-key-raw-string")
		assert.Len(t, key, keySize)
		assert.Equal(t, key, DeriveKey("test-encryption-key-raw-string"))
	})
}

func TestResolveKey(t *testing.T) {
	t.Run("Should prefer the environment variable", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY", "dev-key")
		key, err := ResolveKey(nil)
		require.NoError(t, err)
		assert.Equal(t, DeriveKey("dev-key"), key)
	})
}

func TestCredentials(t *testing.T) {
	c := newTestCipher(t)

	t.Run("Should prefer the environment key", func(t *testing.T) {
		store := storage.NewMemoryStore()
		creds := NewCredentials(store, c, " env-key ")
		require.NoError(t, creds.SetAPIKey("stored-key"))

		key, err := creds.APIKey()
		require.NoError(t, err)
		assert.Equal(t, "env-key", key)
		assert.Equal(t, SourceEnv, creds.Source())
	})

	t.Run("Should store the key encrypted", func(t *testing.T) {
		store := storage.NewMemoryStore()
		creds := NewCredentials(store, c, "")
		require.NoError(t, creds.SetAPIKey("stored-key"))

		var sealed string
		found, err := store.Get(storage.KeyGeminiAPIKey, &sealed)
		require.NoError(t, err)
		require.True(t, found)
		assert.NotContains(t, sealed, "stored-key")

		key, err := creds.APIKey()
		require.NoError(t, err)
		assert.Equal(t, "stored-key", key)
		assert.Equal(t, SourceStored, creds.Source())
	})

	t.Run("Should report none after clearing", func(t *testing.T) {
		store := storage.NewMemoryStore()
		creds := NewCredentials(store, c, "")
		require.NoError(t, creds.SetAPIKey("stored-key"))
		require.NoError(t, creds.SetAPIKey("  "))

		key, err := creds.APIKey()
		require.NoError(t, err)
		assert.Empty(t, key)
		assert.Equal(t, SourceNone, creds.Source())
	})

	t.Run("Should refuse to store keys without a cipher", func(t *testing.T) {
		creds := NewCredentials(storage.NewMemoryStore(), nil, "")
		err := creds.SetAPIKey("stored-key")

		var cfgErr *apperr.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		key, err := creds.APIKey()
		require.NoError(t, err)
		assert.Empty(t, key)
	})
}
