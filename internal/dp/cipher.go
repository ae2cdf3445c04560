package dp

// Cipher seals and opens snapshot bodies with a password.
type Cipher interface {
	// Scheme names the scheme, e.g. "aes-gcm" or "age".
	Scheme() string

	// Seal encrypts plaintext. The result carries everything needed to open
	// it again except the password.
	Seal(plaintext []byte, password string) ([]byte, error)

	// Open decrypts data produced by Seal. Returns an error wrapping
	// ErrAuthentication if verification fails.
	Open(sealed []byte, password string) ([]byte, error)
}
