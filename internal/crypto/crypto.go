// Package crypto implements the vault's cryptographic primitives: key
// derivation, AEAD encryption for field-level secrets, and the salted
// signature hash used for account deduplication.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of all symmetric keys, 256 bits for AES-256.
	KeySize = 32

	// NonceSize is the standard 96-bit GCM nonce size.
	NonceSize = 12

	// SignatureSaltSize is the size of the per-installation salt used
	// by Hash for account signatures.
	SignatureSaltSize = 64

	deriveIterations = 1024
)

// deriveSalt is the PBKDF2 salt for password-derived keys. It is a
// single fixed value shared by every installation, NOT a per-user salt.
// This is a known weakness kept on purpose: the salt is part of the
// persisted data format, and changing it makes every existing vault
// undecryptable. Do not touch it without a re-keying migration.
var deriveSalt = []byte{
	0x73, 0x65, 0x63, 0x76, 0x61, 0x75, 0x6c, 0x74,
	0x2d, 0x6b, 0x65, 0x79, 0x2d, 0x73, 0x61, 0x6c,
	0x74, 0x2e, 0x76, 0x31, 0x00, 0x9d, 0x4b, 0xe1,
	0x37, 0xa2, 0x60, 0x0c, 0x5f, 0x8e, 0x71, 0xd6,
}

var (
	// ErrInvalidPassword is returned when GCM authentication fails
	// during decryption, i.e. the key was derived from the wrong
	// password or the ciphertext was tampered with. Callers use it to
	// prompt for re-entry.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidCiphertext is returned for ciphertext too short to
	// contain a nonce.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrRandomFailure is returned when the platform RNG fails.
	ErrRandomFailure = errors.New("secure random source failed")
)

// GenerateSecret returns 256 bits from the platform CSPRNG.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomFailure, err)
	}
	return secret, nil
}

// GenerateSalt returns length random bytes from the platform CSPRNG.
func GenerateSalt(length int) ([]byte, error) {
	salt := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomFailure, err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit AES key from a password using
// PBKDF2-HMAC-SHA256 over the fixed compatibility salt.
func DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, deriveSalt, deriveIterations, KeySize, sha256.New)
}

// Encrypt seals plaintext with AES-256-GCM under key. A fresh nonce is
// generated per call and prepended to the returned ciphertext.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateSalt(NonceSize)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed AES-256-GCM ciphertext produced by
// Encrypt. A failed authentication tag is reported as
// ErrInvalidPassword, distinct from structural failures.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, ciphertext[:NonceSize], ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}

	return plaintext, nil
}

// Hash returns base64(SHA-256(salt || data)). Used for the account
// signature field with the per-installation signature salt.
func Hash(data, salt []byte) string {
	h := sha256.New()
	h.Write(salt)
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}
