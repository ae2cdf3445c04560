package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"dp-go/internal/dp"
)

const (
	// KeyringService is the service name under which the password is stored.
	KeyringService = "dp"
	keyringUser    = "snapshot-password"
)

// PasswordResolver finds the snapshot password. Sources are tried in order:
// a reader (--password-stdin), the DP_PASSWORD environment variable, the OS
// keyring (when enabled), and finally an interactive terminal prompt.
type PasswordResolver struct {
	Stdin      io.Reader
	UseKeyring bool
	Getenv     func(string) string
	Prompt     func(prompt string) (string, error)

	cached string
}

// NewPasswordResolver creates a resolver using the process environment and
// the controlling terminal. stdin may be nil.
func NewPasswordResolver(stdin io.Reader, useKeyring bool) *PasswordResolver {
	return &PasswordResolver{
		Stdin:      stdin,
		UseKeyring: useKeyring,
		Getenv:     os.Getenv,
		Prompt:     PromptPassword,
	}
}

// Resolve returns the first non-empty password from the configured sources.
// When confirm is set, an interactively entered password must be typed twice.
// The result is cached for the lifetime of the resolver.
func (r *PasswordResolver) Resolve(confirm bool) (string, error) {
	if r.cached != "" {
		return r.cached, nil
	}

	pw, err := r.resolve(confirm)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", dp.ErrPasswordRequired
	}
	r.cached = pw
	return pw, nil
}

func (r *PasswordResolver) resolve(confirm bool) (string, error) {
	if r.Stdin != nil {
		return ReadPasswordLine(r.Stdin)
	}

	if r.Getenv != nil {
		if pw := r.Getenv(EnvPassword); pw != "" {
			return pw, nil
		}
	}

	if r.UseKeyring {
		pw, err := StoredPassword()
		if err != nil {
			return "", err
		}
		if pw != "" {
			return pw, nil
		}
	}

	if r.Prompt == nil {
		return "", dp.ErrPasswordRequired
	}
	pw, err := r.Prompt("Password: ")
	if err != nil {
		return "", err
	}
	if confirm && pw != "" {
		again, err := r.Prompt("Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", fmt.Errorf("passwords do not match")
		}
	}
	return pw, nil
}

// ReadPasswordLine reads the first line from r without its line ending.
func ReadPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptPassword reads a password from the terminal without echo.
// Without a terminal on stdin it fails with dp.ErrPasswordRequired.
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", dp.ErrPasswordRequired
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// StoredPassword returns the password saved in the OS keyring, or "" if none.
func StoredPassword() (string, error) {
	pw, err := keyring.Get(KeyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}
	return pw, nil
}

// StorePassword saves the password in the OS keyring.
func StorePassword(pw string) error {
	if pw == "" {
		return dp.ErrPasswordRequired
	}
	if err := keyring.Set(KeyringService, keyringUser, pw); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// ClearPassword removes the password from the OS keyring. A missing entry is not an error.
func ClearPassword() error {
	if err := keyring.Delete(KeyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("clearing keyring: %w", err)
	}
	return nil
}
