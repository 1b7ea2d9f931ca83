// Package cipher is the encryption boundary between decision data and personal
// data. Every PII field is encrypted by the gateway before it leaves the HTTP
// process and stays ciphertext at rest; only the validator and analytics
// decrypt, and only in memory.
package cipher

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Provider encrypts and decrypts single field values. It models the external
// key-managed encryption collaborator: callers never see key material, only
// opaque ciphertext strings.
type Provider interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// XChaCha is a Provider backed by XChaCha20-Poly1305 with a random nonce per
// value. Ciphertext is base64(nonce || sealed).
type XChaCha struct {
	key []byte
}

// NewXChaCha builds a provider from a base64-encoded 32-byte key.
func NewXChaCha(encodedKey string) (*XChaCha, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode cipher key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &XChaCha{key: key}, nil
}

// GenerateKey returns a fresh base64-encoded key. Used by tests and local
// bootstrap; production keys come from the secret manager.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate cipher key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func (x *XChaCha) Encrypt(_ context.Context, plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(x.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (x *XChaCha) Decrypt(_ context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	aead, err := chacha20poly1305.NewX(x.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plaintext), nil
}
