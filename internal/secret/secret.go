// Package secret seals member mail credentials at rest.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	// ErrEmptyKey is returned when a Sealer is built from an empty passphrase.
	ErrEmptyKey = errors.New("secret: key must not be empty")
	// ErrMalformed is returned when sealed data is truncated or was not
	// produced under the same key.
	ErrMalformed = errors.New("secret: sealed value is malformed or was sealed with another key")
)

var hkdfInfo = []byte("meeting-booking mail credential v1")

// Sealer encrypts and authenticates small secrets with NaCl secretbox.
// The sealed form is nonce || box.
type Sealer struct {
	key  [keySize]byte
	rand io.Reader
}

// NewSealer derives a secretbox key from passphrase with HKDF-SHA256.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	s := &Sealer{rand: rand.Reader}
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("secret: derive key: %w", err)
	}
	return s, nil
}

// Seal encrypts plaintext under a fresh random nonce. An empty plaintext
// seals to nil so that callers can store "no secret" as NULL.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("secret: read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open reverses Seal. A nil or empty input opens to the empty string.
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrMalformed
	}
	return string(plain), nil
}
