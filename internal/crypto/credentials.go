package crypto

import (
	"fmt"
	"strings"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/storage"
)

// Credential sources reported by Credentials.Source.
const (
	SourceEnv    = "env"
	SourceStored = "stored"
	SourceNone   = "none"
)

// Credentials resolves the AI provider API key. A key supplied through the
// environment wins over one saved from the settings screen. Without a
// cipher only the environment key is available.
type Credentials struct {
	store  storage.Store
	cipher *Cipher
	envKey string
}

func NewCredentials(store storage.Store, cipher *Cipher, envKey string) *Credentials {
	return &Credentials{store: store, cipher: cipher, envKey: strings.TrimSpace(envKey)}
}

// APIKey returns the active key, or "" when none is configured.
func (c *Credentials) APIKey() (string, error) {
	if c.envKey != "" {
		return c.envKey, nil
	}
	if c.cipher == nil {
		return "", nil
	}
	var sealed string
	found, err := c.store.Get(storage.KeyGeminiAPIKey, &sealed)
	if err != nil || !found {
		return "", err
	}
	key, err := c.cipher.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt stored API key: %w", err)
	}
	return key, nil
}

// SetAPIKey encrypts and persists key.
func (c *Credentials) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return c.ClearAPIKey()
	}
	if c.cipher == nil {
		return &apperr.ConfigurationError{
			Setting: "ENCRYPTION_KEY",
			Message: "Secure key storage is unavailable. Set GEMINI_API_KEY in the environment instead.",
		}
	}
	sealed, err := c.cipher.Encrypt(key)
	if err != nil {
		return err
	}
	return c.store.Set(storage.KeyGeminiAPIKey, sealed)
}

func (c *Credentials) ClearAPIKey() error {
	return c.store.Remove(storage.KeyGeminiAPIKey)
}

// Source reports where the active key comes from.
func (c *Credentials) Source() string {
	if c.envKey != "" {
		return SourceEnv
	}
	key, err := c.APIKey()
	if err == nil && key != "" {
		return SourceStored
	}
	return SourceNone
}
