package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	"dp-go/internal/dp"
)

// ageHeader starts every age-encrypted file.
const ageHeader = "age-encryption.org/v1\n"

// DefaultAgeWorkFactor is the scrypt work factor (log2 N) used for new bodies.
const DefaultAgeWorkFactor = 18

// AgeCipher implements dp.Cipher using filippo.io/age passphrase encryption.
// The password goes through scrypt with a random salt, unlike GCMCipher.
type AgeCipher struct {
	workFactor int
}

var _ dp.Cipher = (*AgeCipher)(nil)

// NewAgeCipher creates an AgeCipher. workFactor <= 0 selects DefaultAgeWorkFactor.
func NewAgeCipher(workFactor int) *AgeCipher {
	if workFactor <= 0 {
		workFactor = DefaultAgeWorkFactor
	}
	return &AgeCipher{workFactor: workFactor}
}

func (c *AgeCipher) Scheme() string { return SchemeAge }

// IsAge reports whether data starts with the age file header.
func IsAge(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}

// Seal encrypts plaintext to a scrypt recipient derived from password.
func (c *AgeCipher) Seal(plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, dp.ErrPasswordRequired
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(c.workFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts an age body. A wrong password or a tampered payload is
// reported as dp.ErrAuthentication.
func (c *AgeCipher) Open(sealed []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, dp.ErrPasswordRequired
	}
	if !IsAge(sealed) {
		return nil, fmt.Errorf("%w: missing age header", dp.ErrInvalidData)
	}

	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	// Accept bodies written with a higher work factor than we use for new ones.
	identity.SetMaxWorkFactor(max(c.workFactor, 22))

	r, err := age.Decrypt(bytes.NewReader(sealed), identity)
	if err != nil {
		if errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, dp.ErrAuthentication
		}
		return nil, fmt.Errorf("%w: %v", dp.ErrInvalidData, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, dp.ErrAuthentication
	}
	return plaintext, nil
}
