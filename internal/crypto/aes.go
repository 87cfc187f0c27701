// Package crypto seals stored provider API keys with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const prefix = "aes-gcm:"

// ErrInvalidKey is returned when the configured encryption key has an unusable length.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (hex-encoded 64 chars, base64 44 chars, or raw 32 bytes)")

// Sealer encrypts and decrypts secret values with a fixed key.
// A nil *Sealer is valid and passes values through unchanged (no key configured).
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the AES key once and prepares the GCM cipher.
// An empty key returns a nil Sealer (plain-text storage).
func NewSealer(key string) (*Sealer, error) {
	if key == "" {
		return nil, nil
	}
	keyBytes, err := DeriveKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// Seal returns "aes-gcm:" + base64(nonce + ciphertext + tag).
func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil || plaintext == "" {
		return plaintext, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the "aes-gcm:" prefix are returned as-is
// so rows written before a key was configured keep working.
func (s *Sealer) Open(value string) (string, error) {
	if s == nil || !IsSealed(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", errors.New("sealed value too short")
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", errors.New("decrypt failed: invalid key or corrupted data")
	}
	return string(plain), nil
}

// IsSealed reports whether the value carries the "aes-gcm:" prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, prefix)
}

// DeriveKey converts the input string to a 32-byte AES key.
// Accepts: hex-encoded (64 chars), base64-encoded (44 chars), or raw 32 bytes.
func DeriveKey(input string) ([]byte, error) {
	switch {
	case len(input) == 64:
		if b, err := hex.DecodeString(input); err == nil {
			return b, nil
		}
	case len(input) == 44 && strings.HasSuffix(input, "="):
		if b, err := base64.StdEncoding.DecodeString(input); err == nil && len(b) == 32 {
			return b, nil
		}
	case len(input) == 32:
		return []byte(input), nil
	}
	return nil, ErrInvalidKey
}
