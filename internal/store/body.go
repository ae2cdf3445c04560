package store

import (
	"fmt"

	"dp-go/internal/codec"
	"dp-go/internal/dp"
	"dp-go/internal/encryption"
)

// BodyKind tells how a stored snapshot body must be read.
type BodyKind int

const (
	// BodyPlain holds a serialized snapshot that decodes without a password.
	BodyPlain BodyKind = iota + 1
	// BodyEncrypted holds a sealed snapshot; Scheme names the cipher.
	BodyEncrypted
)

func (k BodyKind) String() string {
	switch k {
	case BodyPlain:
		return "plain"
	case BodyEncrypted:
		return "encrypted"
	default:
		return fmt.Sprintf("BodyKind(%d)", int(k))
	}
}

// Body is a snapshot body as found in the vault.
type Body struct {
	Kind   BodyKind
	Scheme string // cipher scheme, set for BodyEncrypted
	Data   []byte
}

// Extension values of body keys under snapshots/.
const (
	extBinary = ".bin"
	extJSON   = ".json"
)

// Classify decides the body variant from the key extension and leading bytes.
//
// A .json body is always plain. A .bin body is plain when it carries the
// binary codec header, age-encrypted when it carries the age header, and
// otherwise treated as nonce-prefixed AES-GCM. Anything shorter than a nonce
// cannot be any of these.
func Classify(ext string, data []byte) (Body, error) {
	switch ext {
	case extJSON:
		return Body{Kind: BodyPlain, Data: data}, nil
	case extBinary:
		switch {
		case codec.IsBinary(data):
			return Body{Kind: BodyPlain, Data: data}, nil
		case encryption.IsAge(data):
			return Body{Kind: BodyEncrypted, Scheme: encryption.SchemeAge, Data: data}, nil
		case len(data) >= encryption.NonceSize:
			return Body{Kind: BodyEncrypted, Scheme: encryption.SchemeGCM, Data: data}, nil
		default:
			return Body{}, fmt.Errorf("%w: body is %d bytes", dp.ErrInvalidData, len(data))
		}
	default:
		return Body{}, fmt.Errorf("unknown body extension %q", ext)
	}
}

// decodePlain decodes serialized snapshot bytes of either codec format.
func decodePlain(data []byte) (*dp.Snapshot, error) {
	if codec.IsBinary(data) {
		return codec.DecodeBinary(data)
	}
	return codec.DecodeJSON(data)
}
