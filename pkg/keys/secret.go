// Package keys encrypts configuration secrets at rest.
// Secrets are sealed with AES-256-GCM under a key derived from the
// operator's master secret with HKDF-SHA256.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// MasterKeyEnv names the environment variable holding the master secret.
	MasterKeyEnv = "CBTC_MASTER_KEY"

	// SecretPrefix marks an encrypted configuration value.
	SecretPrefix = "aes-256-gcm:"

	keySize  = 32
	hkdfInfo = "cbtc-config-secret"

	minMasterSecret = 16
)

// ErrNoMasterKey is returned when an encrypted value is found but no master key is set.
var ErrNoMasterKey = errors.New(MasterKeyEnv + " is not set")

// DeriveKey derives the 32-byte AES-256 key from a master secret.
func DeriveKey(masterSecret []byte) ([]byte, error) {
	if len(masterSecret) < minMasterSecret {
		return nil, fmt.Errorf("master secret must be at least %d bytes", minMasterSecret)
	}
	r := hkdf.New(sha256.New, masterSecret, nil, []byte(hkdfInfo))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// KeyFromEnv derives the key from CBTC_MASTER_KEY.
func KeyFromEnv() ([]byte, error) {
	secret := os.Getenv(MasterKeyEnv)
	if secret == "" {
		return nil, ErrNoMasterKey
	}
	return DeriveKey([]byte(secret))
}

// IsEncrypted reports whether v carries the encrypted value prefix.
func IsEncrypted(v string) bool {
	return strings.HasPrefix(v, SecretPrefix)
}

// Encrypt seals plaintext and returns "aes-256-gcm:" followed by
// base64(nonce || ciphertext || tag).
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return SecretPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the prefix are
// returned unchanged.
func Decrypt(value string, key []byte) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SecretPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes (AES-256)", keySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
