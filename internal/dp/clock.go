package dp

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces snapshot identifiers. IDs must be unique within a
// store and safe to use as file names.
type IDGenerator interface {
	NewID(rootPath string, capturedAt time.Time) string
}

// IDTimeLayout is the timestamp prefix of generated snapshot IDs.
const IDTimeLayout = "20060102T150405Z"

// HashIDGenerator builds IDs of the form <UTC capture time>_<12 hex chars>,
// where the hex part is a BLAKE3 digest of the root path and a random UUID.
type HashIDGenerator struct{}

func (HashIDGenerator) NewID(rootPath string, capturedAt time.Time) string {
	h := blake3.New()
	h.Write([]byte(rootPath))
	h.Write([]byte{0})
	h.Write([]byte(uuid.NewString()))
	sum := h.Sum(nil)
	return capturedAt.UTC().Format(IDTimeLayout) + "_" + hex.EncodeToString(sum)[:12]
}
