package dp

import "errors"

var (
	// ErrNotFound is returned when a snapshot or stored object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPasswordRequired is returned when encryption is requested without a
	// password, or when a body is encrypted and no password was supplied.
	ErrPasswordRequired = errors.New("password required")

	// ErrAuthentication is returned when decryption fails verification,
	// usually because the password is wrong.
	ErrAuthentication = errors.New("decryption failed (wrong password?)")

	// ErrEncrypted is returned when a body without a recognizable plain
	// format is loaded without a password.
	ErrEncrypted = errors.New("data appears to be encrypted, password required")

	// ErrInvalidData is returned for bodies that are too short or malformed.
	ErrInvalidData = errors.New("invalid snapshot data")

	// ErrRootUnreadable is returned when the scan root does not exist or
	// cannot be traversed.
	ErrRootUnreadable = errors.New("scan root unreadable")
)

var (
	// ErrNotEnoughSnapshots is returned when a comparison needs two stored
	// snapshots and fewer exist.
	ErrNotEnoughSnapshots = errors.New("need at least 2 scans to compare")

	// ErrAmbiguousID is returned when an id prefix matches more than one snapshot.
	ErrAmbiguousID = errors.New("ambiguous snapshot id")
)
