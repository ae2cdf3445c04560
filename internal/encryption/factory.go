package encryption

import (
	"fmt"

	"dp-go/internal/config"
	"dp-go/internal/dp"
)

// Scheme names accepted in config.
const (
	SchemeGCM = "aes-gcm"
	SchemeAge = "age"
)

// NewCipherFromConfig creates the Cipher used to seal new snapshot bodies.
func NewCipherFromConfig(cfg config.EncryptionConfig) (dp.Cipher, error) {
	switch cfg.Scheme {
	case SchemeGCM, "":
		return NewGCMCipher(), nil
	case SchemeAge:
		return NewAgeCipher(cfg.AgeWorkFactor), nil
	default:
		return nil, fmt.Errorf("unknown encryption scheme: %q", cfg.Scheme)
	}
}
