// Package codec encodes snapshot bodies and summaries.
//
// Two body formats exist. The binary format is compact and used whenever the
// body is encrypted:
//
//	"DPSB" | version (1 byte) | zstd(msgpack payload)
//
// The payload is a msgpack map keyed like the JSON fields, so readers skip
// keys they do not know. The JSON format is pretty-printed and used for plain
// bodies so they stay human-readable.
package codec

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/tinylib/msgp/msgp"

	"dp-go/internal/dp"
)

const (
	binaryMagic   = "DPSB"
	binaryVersion = byte(1)

	// headerSize is the magic plus the version byte.
	headerSize = len(binaryMagic) + 1
)

// Payload map keys.
const (
	keyID           = "id"
	keyRootPath     = "drive_path"
	keyCapturedAt   = "timestamp"
	keyFileCount    = "total_files"
	keyTotalSize    = "total_size"
	keyScanDuration = "scan_duration"
	keyEntries      = "files"

	keyPath     = "path"
	keySize     = "size"
	keyModified = "modified"
	keyIsDir    = "is_dir"
)

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
)

// IsBinary reports whether data starts with the binary body header.
func IsBinary(data []byte) bool {
	return len(data) >= headerSize && bytes.HasPrefix(data, []byte(binaryMagic))
}

// EncodeBinary serializes a snapshot into the compact binary format.
func EncodeBinary(s *dp.Snapshot) ([]byte, error) {
	payload := appendSnapshot(make([]byte, 0, 128+len(s.Entries)*64), s)

	enc, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	out := make([]byte, 0, headerSize+len(payload)/2)
	out = append(out, binaryMagic...)
	out = append(out, binaryVersion)
	return enc.EncodeAll(payload, out), nil
}

// DecodeBinary parses data produced by EncodeBinary.
// Returns an error wrapping dp.ErrInvalidData for anything else.
func DecodeBinary(data []byte) (*dp.Snapshot, error) {
	if !IsBinary(data) {
		return nil, fmt.Errorf("%w: missing binary header", dp.ErrInvalidData)
	}
	if v := data[len(binaryMagic)]; v != binaryVersion {
		return nil, fmt.Errorf("%w: unsupported binary version %d", dp.ErrInvalidData, v)
	}

	dec, err := decoder()
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	payload, err := dec.DecodeAll(data[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing body: %v", dp.ErrInvalidData, err)
	}

	s, rest, err := readSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dp.ErrInvalidData, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", dp.ErrInvalidData, len(rest))
	}
	return s, nil
}

func appendSnapshot(b []byte, s *dp.Snapshot) []byte {
	b = msgp.AppendMapHeader(b, 7)
	b = msgp.AppendString(b, keyID)
	b = msgp.AppendString(b, s.ID)
	b = msgp.AppendString(b, keyRootPath)
	b = msgp.AppendString(b, s.RootPath)
	b = msgp.AppendString(b, keyCapturedAt)
	b = msgp.AppendInt64(b, s.CapturedAt)
	b = msgp.AppendString(b, keyFileCount)
	b = msgp.AppendUint64(b, s.FileCount)
	b = msgp.AppendString(b, keyTotalSize)
	b = msgp.AppendUint64(b, s.TotalSize)
	b = msgp.AppendString(b, keyScanDuration)
	b = msgp.AppendUint64(b, s.ScanDuration)

	b = msgp.AppendString(b, keyEntries)
	if s.Entries == nil {
		return msgp.AppendNil(b)
	}
	b = msgp.AppendArrayHeader(b, uint32(len(s.Entries)))
	for _, e := range s.Entries {
		b = msgp.AppendMapHeader(b, 4)
		b = msgp.AppendString(b, keyPath)
		b = msgp.AppendString(b, e.Path)
		b = msgp.AppendString(b, keySize)
		b = msgp.AppendUint64(b, e.Size)
		b = msgp.AppendString(b, keyModified)
		b = msgp.AppendInt64(b, e.Modified)
		b = msgp.AppendString(b, keyIsDir)
		b = msgp.AppendBool(b, e.IsDirectory)
	}
	return b
}

func readSnapshot(b []byte) (*dp.Snapshot, []byte, error) {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot header: %w", err)
	}

	s := &dp.Snapshot{}
	for range n {
		var key []byte
		if key, b, err = msgp.ReadMapKeyZC(b); err != nil {
			return nil, nil, fmt.Errorf("snapshot key: %w", err)
		}
		switch string(key) {
		case keyID:
			s.ID, b, err = msgp.ReadStringBytes(b)
		case keyRootPath:
			s.RootPath, b, err = msgp.ReadStringBytes(b)
		case keyCapturedAt:
			s.CapturedAt, b, err = msgp.ReadInt64Bytes(b)
		case keyFileCount:
			s.FileCount, b, err = msgp.ReadUint64Bytes(b)
		case keyTotalSize:
			s.TotalSize, b, err = msgp.ReadUint64Bytes(b)
		case keyScanDuration:
			s.ScanDuration, b, err = msgp.ReadUint64Bytes(b)
		case keyEntries:
			s.Entries, b, err = readEntries(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
	}
	return s, b, nil
}

func readEntries(b []byte) ([]dp.FileRecord, []byte, error) {
	if msgp.IsNil(b) {
		b, err := msgp.ReadNilBytes(b)
		return nil, b, err
	}

	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, nil, err
	}
	// Every entry takes at least one byte, which bounds the allocation.
	if int64(n) > int64(len(b)) {
		return nil, nil, fmt.Errorf("entry count %d exceeds payload", n)
	}

	entries := make([]dp.FileRecord, 0, n)
	for range n {
		var e dp.FileRecord
		if e, b, err = readEntry(b); err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
	return entries, b, nil
}

func readEntry(b []byte) (dp.FileRecord, []byte, error) {
	var e dp.FileRecord
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return e, nil, err
	}
	for range n {
		var key []byte
		if key, b, err = msgp.ReadMapKeyZC(b); err != nil {
			return e, nil, err
		}
		switch string(key) {
		case keyPath:
			e.Path, b, err = msgp.ReadStringBytes(b)
		case keySize:
			e.Size, b, err = msgp.ReadUint64Bytes(b)
		case keyModified:
			e.Modified, b, err = msgp.ReadInt64Bytes(b)
		case keyIsDir:
			e.IsDirectory, b, err = msgp.ReadBoolBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return e, nil, fmt.Errorf("field %q: %w", key, err)
		}
	}
	return e, b, nil
}
