package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
)

// ErrEmptySecret is returned when a Sealer is built without key material.
var ErrEmptySecret = errors.New("crypto: empty secret")

// Sealer encrypts and authenticates small payloads with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32 byte key from secret using SHA-256.
func NewSealer(secret string) (Sealer, error) {
	if secret == "" {
		return Sealer{}, ErrEmptySecret
	}
	sum := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return Sealer{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Sealer{}, err
	}
	return Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext and prefixes the random nonce.
func (s Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal, failing when the payload was truncated or tampered with.
func (s Sealer) Open(payload []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize {
		return nil, io.ErrUnexpectedEOF
	}
	return s.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
}
