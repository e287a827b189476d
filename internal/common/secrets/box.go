// Package secrets seals and opens small values such as customer phone numbers.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrInvalidKey        = errors.New("INVALID_KEY")
	ErrMalformedCipher   = errors.New("MALFORMED_CIPHERTEXT")
	ErrDecryptionFailure = errors.New("DECRYPTION_FAILED")
)

// Box encrypts with a fixed 32-byte key. The wire form is base64(nonce || sealed).
type Box struct {
	key [keySize]byte
}

// NewBox parses a base64 (std or raw url) encoded 32-byte key.
func NewBox(encodedKey string) (*Box, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, keySize, len(raw))
	}
	b := &Box{}
	copy(b.key[:], raw)
	return b, nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *Box) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCipher, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformedCipher
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrDecryptionFailure
	}
	return string(opened), nil
}
