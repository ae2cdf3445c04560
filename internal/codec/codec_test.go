package codec

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"dp-go/internal/dp"
)

func sampleSnapshot() *dp.Snapshot {
	return dp.NewSnapshot("20240115T103000Z_0123456789ab", `/data/photos`,
		time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), 3*time.Second,
		[]dp.FileRecord{
			{Path: "/data/photos", IsDirectory: true, Modified: 1705314600},
			{Path: "/data/photos/a.jpg", Size: 123456, Modified: 1705314000},
			{Path: "/data/photos/ünïcode name.png", Size: 0, Modified: 0},
			{Path: "/data/photos/old", Size: 7, Modified: -86400},
		})
}

// edgeSnapshots covers values at the limits of each field.
func edgeSnapshots() map[string]*dp.Snapshot {
	return map[string]*dp.Snapshot{
		"extreme values": {
			ID:           "edge",
			RootPath:     "/données/日本",
			CapturedAt:   math.MinInt64,
			FileCount:    math.MaxUint64,
			TotalSize:    math.MaxUint64,
			ScanDuration: math.MaxUint64,
			Entries: []dp.FileRecord{
				{Path: "/données/日本/ファイル.txt", Size: math.MaxUint64, Modified: math.MaxInt64},
				{Path: "/données/before-epoch", Modified: -1},
				{Path: "", Modified: math.MinInt64, IsDirectory: true},
			},
		},
		"nil entries":   {ID: "nil-entries", RootPath: "/n", CapturedAt: 1},
		"empty entries": {ID: "empty-entries", RootPath: "/e", Entries: []dp.FileRecord{}},
	}
}

func TestBinary_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		snap *dp.Snapshot
	}{
		{name: "typical snapshot", snap: sampleSnapshot()},
		{name: "empty snapshot", snap: dp.NewSnapshot("empty", "/e", time.Unix(0, 0), 0, nil)},
		{name: "large snapshot", snap: func() *dp.Snapshot {
			entries := make([]dp.FileRecord, 5000)
			for i := range entries {
				entries[i] = dp.FileRecord{Path: "/big/file-" + string(rune('a'+i%26)), Size: uint64(i), Modified: int64(i * 3)}
			}
			return dp.NewSnapshot("big", "/big", time.Unix(1700000000, 0), time.Minute, entries)
		}()},
	}
	for name, snap := range edgeSnapshots() {
		tests = append(tests, struct {
			name string
			snap *dp.Snapshot
		}{name: name, snap: snap})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeBinary(tt.snap)
			require.NoError(t, err)
			assert.True(t, IsBinary(data))

			got, err := DecodeBinary(data)
			require.NoError(t, err)
			assert.Equal(t, tt.snap, got)
		})
	}
}

func TestBinary_IsCompact(t *testing.T) {
	t.Parallel()

	entries := make([]dp.FileRecord, 2000)
	for i := range entries {
		entries[i] = dp.FileRecord{Path: "/srv/share/projects/report-final.docx", Size: 4096, Modified: 1700000000}
	}
	s := dp.NewSnapshot("compact", "/srv/share", time.Unix(1700000000, 0), 0, entries)

	bin, err := EncodeBinary(s)
	require.NoError(t, err)
	js, err := EncodeJSON(s)
	require.NoError(t, err)

	assert.Less(t, len(bin), len(js)/10)
}

func TestDecodeBinary_Rejects(t *testing.T) {
	t.Parallel()

	valid, err := EncodeBinary(sampleSnapshot())
	require.NoError(t, err)

	badVersion := bytes.Clone(valid)
	badVersion[len(binaryMagic)] = 9

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "random bytes", data: []byte{0x8f, 0x01, 0x22, 0x9a, 0x00, 0x13, 0x77, 0x42, 0x10, 0x11, 0x12, 0x13}},
		{name: "json body", data: []byte(`{"id":"x"}`)},
		{name: "unknown version", data: badVersion},
		{name: "truncated", data: valid[:len(valid)-5]},
		{name: "header only", data: []byte("DPSB\x01")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBinary(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, dp.ErrInvalidData)
		})
	}
}

func TestDecodeBinary_SkipsUnknownFields(t *testing.T) {
	t.Parallel()

	var payload []byte
	payload = msgp.AppendMapHeader(payload, 3)
	payload = msgp.AppendString(payload, "id")
	payload = msgp.AppendString(payload, "newer")
	payload = msgp.AppendString(payload, "host")
	payload = msgp.AppendString(payload, "nas-01")
	payload = msgp.AppendString(payload, "files")
	payload = msgp.AppendArrayHeader(payload, 1)
	payload = msgp.AppendMapHeader(payload, 3)
	payload = msgp.AppendString(payload, "path")
	payload = msgp.AppendString(payload, "/a")
	payload = msgp.AppendString(payload, "checksum")
	payload = msgp.AppendBytes(payload, []byte{0xde, 0xad})
	payload = msgp.AppendString(payload, "size")
	payload = msgp.AppendUint64(payload, 10)

	enc, err := encoder()
	require.NoError(t, err)
	data := enc.EncodeAll(payload, []byte(binaryMagic+"\x01"))

	got, err := DecodeBinary(data)
	require.NoError(t, err)
	assert.Equal(t, &dp.Snapshot{
		ID:      "newer",
		Entries: []dp.FileRecord{{Path: "/a", Size: 10}},
	}, got)
}

func TestDecodeBinary_RejectsBadPayload(t *testing.T) {
	t.Parallel()

	enc, err := encoder()
	require.NoError(t, err)
	wrap := func(payload []byte) []byte {
		return enc.EncodeAll(payload, []byte(binaryMagic+"\x01"))
	}

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "not a map", payload: msgp.AppendString(nil, "snapshot")},
		{name: "wrong field type", payload: msgp.AppendString(msgp.AppendString(msgp.AppendMapHeader(nil, 1), "total_size"), "big")},
		{name: "entry count beyond payload", payload: msgp.AppendArrayHeader(msgp.AppendString(msgp.AppendMapHeader(nil, 1), "files"), 1000)},
		{name: "trailing bytes", payload: msgp.AppendInt(msgp.AppendMapHeader(nil, 0), 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBinary(wrap(tt.payload))
			assert.ErrorIs(t, err, dp.ErrInvalidData)
		})
	}
}

func TestJSON_RoundTrip_EdgeValues(t *testing.T) {
	t.Parallel()

	for name, snap := range edgeSnapshots() {
		t.Run(name, func(t *testing.T) {
			data, err := EncodeJSON(snap)
			require.NoError(t, err)

			got, err := DecodeJSON(data)
			require.NoError(t, err)
			assert.Equal(t, snap, got)
		})
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	s := sampleSnapshot()
	data, err := EncodeJSON(s)
	require.NoError(t, err)

	assert.Contains(t, string(data), "\n  \"drive_path\": \"/data/photos\"")
	assert.False(t, IsBinary(data))

	got, err := DecodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeJSON_Rejects(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("not json"), []byte(`{"files":[]}`), {0x00, 0x01}} {
		_, err := DecodeJSON(data)
		assert.ErrorIs(t, err, dp.ErrInvalidData, "data %q", data)
	}
}

func TestSummary_RoundTrip(t *testing.T) {
	t.Parallel()

	sum := sampleSnapshot().Summary()
	data, err := EncodeSummary(sum)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "20240115T103000Z_0123456789ab",
		"drive_path": "/data/photos",
		"timestamp": 1705314600,
		"total_files": 3,
		"total_size": 123463,
		"scan_duration": 3
	}`, string(data))

	got, err := DecodeSummary(data)
	require.NoError(t, err)
	assert.Equal(t, sum, got)
}

func TestDecodeSummary_Rejects(t *testing.T) {
	t.Parallel()

	_, err := DecodeSummary([]byte("{broken"))
	assert.ErrorIs(t, err, dp.ErrInvalidData)

	_, err = DecodeSummary([]byte(`{"drive_path":"/x"}`))
	assert.ErrorIs(t, err, dp.ErrInvalidData)
}
