package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"dp-go/internal/dp"
)

// NonceSize is the length of the random nonce stored in front of every
// AES-GCM body.
const NonceSize = 12

// GCMCipher implements dp.Cipher with AES-256-GCM. The key is the SHA-256
// digest of the password, with no salt or stretching, so weak passwords are
// open to dictionary attacks. Sealed bodies are laid out as
//
//	nonce (12 bytes) | ciphertext | tag (16 bytes)
//
// Use AgeCipher when a salted, work-factored KDF is wanted.
type GCMCipher struct{}

var _ dp.Cipher = (*GCMCipher)(nil)

// NewGCMCipher creates a new GCMCipher.
func NewGCMCipher() *GCMCipher {
	return &GCMCipher{}
}

func (c *GCMCipher) Scheme() string { return SchemeGCM }

// DeriveKey returns the 256-bit key for a password.
func DeriveKey(password string) [32]byte {
	return sha256.Sum256([]byte(password))
}

// Seal encrypts plaintext with a fresh random nonce.
func (c *GCMCipher) Seal(plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, dp.ErrPasswordRequired
	}

	aead, err := newAEAD(password)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Open splits off the nonce and decrypts the remainder.
func (c *GCMCipher) Open(sealed []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, dp.ErrPasswordRequired
	}
	if len(sealed) < NonceSize {
		return nil, fmt.Errorf("%w: encrypted body shorter than nonce", dp.ErrInvalidData)
	}

	aead, err := newAEAD(password)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, dp.ErrAuthentication
	}
	return plaintext, nil
}

func newAEAD(password string) (cipher.AEAD, error) {
	key := DeriveKey(password)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return aead, nil
}
