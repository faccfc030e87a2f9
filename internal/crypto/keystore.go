package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/zalando/go-keyring"
)

const (
	keystoreService = "reelsmith-desktop"
	keystoreUser    = "encryption-key"
)

// LoadOrCreateKey loads the AES-256 key from the system keychain, creating
// and storing a new one when none exists.
func LoadOrCreateKey(log *slog.Logger) ([]byte, error) {
	encoded, err := keyring.Get(keystoreService, keystoreUser)
	if err == nil && encoded != "" {
		key, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr == nil && len(key) == keySize {
			return key, nil
		}
		log.Warn("keychain entry is malformed, generating a new key")
	}

	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.Warn("keystore lookup failed", "error", err)
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	if err := keyring.Set(keystoreService, keystoreUser, base64.StdEncoding.EncodeToString(key)); err != nil {
		// Linux without a secret service is tolerated; stored secrets
		// become unreadable after restart.
		if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
			return nil, fmt.Errorf("keychain storage required on %s: %w", runtime.GOOS, err)
		}
		log.Warn("failed to store key in keychain, key will be regenerated on next launch", "error", err)
	}

	return key, nil
}

// IsKeyStored checks if an encryption key exists in the keychain
func IsKeyStored() bool {
	_, err := keyring.Get(keystoreService, keystoreUser)
	return err == nil
}
