package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for stored password digests. Changing any of them
// invalidates every digest already on file.
const (
	saltBytes = 8
	keyLength = 32
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
)

const digestSeparator = "."

// ErrMalformedDigest is returned when a stored digest is not in salt.hash form.
var ErrMalformedDigest = errors.New("crypto: malformed password digest")

// HashPassword derives a salted scrypt digest of the form "salt.hash",
// both segments hex encoded.
func HashPassword(plain string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)
	key, err := deriveKey(plain, salt)
	if err != nil {
		return "", err
	}
	return salt + digestSeparator + hex.EncodeToString(key), nil
}

// ComparePassword reports whether plain matches the stored digest. Malformed
// digests never match.
func ComparePassword(digest, plain string) bool {
	salt, expected, err := splitDigest(digest)
	if err != nil {
		return false
	}
	key, err := deriveKey(plain, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func deriveKey(plain, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(plain), []byte(salt), scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// splitDigest separates salt and hash on the first separator and checks both
// segments have the expected length and encoding.
func splitDigest(digest string) (string, []byte, error) {
	salt, hash, ok := strings.Cut(digest, digestSeparator)
	if !ok {
		return "", nil, ErrMalformedDigest
	}
	if len(salt) != hex.EncodedLen(saltBytes) || len(hash) != hex.EncodedLen(keyLength) {
		return "", nil, ErrMalformedDigest
	}
	if _, err := hex.DecodeString(salt); err != nil {
		return "", nil, ErrMalformedDigest
	}
	expected, err := hex.DecodeString(hash)
	if err != nil {
		return "", nil, ErrMalformedDigest
	}
	return salt, expected, nil
}
