package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dp-go/internal/codec"
	"dp-go/internal/dp"
	"dp-go/internal/encryption"
	"dp-go/internal/testutil"
	"dp-go/internal/vault"
)

func newTestStore(t *testing.T) (*VaultStore, *vault.MemoryVault) {
	t.Helper()
	v := vault.NewMemoryVault()
	return NewVaultStore(v, encryption.NewGCMCipher(), dp.NewNopLogger()), v
}

func sample(id string) *dp.Snapshot {
	return testutil.NewSnapshot(id, "/data", map[string]uint64{
		"a.txt":       10,
		"docs/b.md":   2048,
		"docs/c.json": 0,
	})
}

func exists(t *testing.T, v dp.Vault, key string) bool {
	t.Helper()
	err := v.Get(context.Background(), key, &bytes.Buffer{})
	if errors.Is(err, dp.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestVaultStore_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sealer dp.Cipher
		opts   dp.SaveOptions
	}{
		{name: "plain", sealer: encryption.NewGCMCipher(), opts: dp.SaveOptions{}},
		{name: "aes-gcm", sealer: encryption.NewGCMCipher(), opts: dp.SaveOptions{Encrypt: true, Password: "hunter2"}},
		{name: "age", sealer: encryption.NewAgeCipher(10), opts: dp.SaveOptions{Encrypt: true, Password: "hunter2"}},
	}

	snapshots := []*dp.Snapshot{
		sample("snap-1"),
		{
			ID:         "edge",
			RootPath:   "/données",
			CapturedAt: -1,
			FileCount:  2,
			TotalSize:  math.MaxUint64,
			Entries: []dp.FileRecord{
				{Path: "/données/日本語.txt", Size: math.MaxUint64, Modified: -86400},
				{Path: "/données/dir", Modified: math.MaxInt64, IsDirectory: true},
			},
		},
		{ID: "no-entries", RootPath: "/empty", CapturedAt: 1700000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := NewVaultStore(vault.NewMemoryVault(), tt.sealer, dp.NewNopLogger())

			for _, snap := range snapshots {
				require.NoError(t, s.Save(ctx, snap, tt.opts))

				got, err := s.Load(ctx, snap.ID, tt.opts.Password)
				require.NoError(t, err)
				assert.Equal(t, snap, got, "snapshot %s", snap.ID)
			}
		})
	}
}

func TestVaultStore_Save_Layout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("encrypted body is .bin", func(t *testing.T) {
		s, v := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("enc"), dp.SaveOptions{Encrypt: true, Password: "pw"}))

		assert.True(t, exists(t, v, "snapshots/enc.bin"))
		assert.False(t, exists(t, v, "snapshots/enc.json"))
		assert.True(t, exists(t, v, "metadata/enc.json"))

		var buf bytes.Buffer
		require.NoError(t, v.Get(ctx, "snapshots/enc.bin", &buf))
		assert.False(t, codec.IsBinary(buf.Bytes()), "body must not be stored in the clear")
		assert.NotContains(t, buf.String(), "docs/b.md")
	})

	t.Run("plain body is pretty json", func(t *testing.T) {
		s, v := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("plain"), dp.SaveOptions{}))

		var buf bytes.Buffer
		require.NoError(t, v.Get(ctx, "snapshots/plain.json", &buf))
		assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"id\": \"plain\""))
		assert.False(t, exists(t, v, "snapshots/plain.bin"))
	})

	t.Run("summary is plain json", func(t *testing.T) {
		s, v := newTestStore(t)
		snap := sample("sum")
		require.NoError(t, s.Save(ctx, snap, dp.SaveOptions{Encrypt: true, Password: "pw"}))

		var buf bytes.Buffer
		require.NoError(t, v.Get(ctx, "metadata/sum.json", &buf))
		got, err := codec.DecodeSummary(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, snap.Summary(), got)
	})

	t.Run("re-save in the other format removes the stale body", func(t *testing.T) {
		s, v := newTestStore(t)
		snap := sample("again")
		require.NoError(t, s.Save(ctx, snap, dp.SaveOptions{Encrypt: true, Password: "pw"}))
		require.NoError(t, s.Save(ctx, snap, dp.SaveOptions{}))

		assert.False(t, exists(t, v, "snapshots/again.bin"))
		got, err := s.Load(ctx, "again", "")
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})
}

func TestVaultStore_Save_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("encryption without password fails before any write", func(t *testing.T) {
		s, v := newTestStore(t)
		err := s.Save(ctx, sample("x"), dp.SaveOptions{Encrypt: true})
		require.ErrorIs(t, err, dp.ErrPasswordRequired)
		assert.Zero(t, v.Len())
	})

	t.Run("unsafe id", func(t *testing.T) {
		s, v := newTestStore(t)
		for _, id := range []string{"", "..", "a/b", `a\b`} {
			err := s.Save(ctx, sample(id), dp.SaveOptions{})
			assert.ErrorIs(t, err, dp.ErrInvalidData, "id %q", id)
		}
		assert.Zero(t, v.Len())
	})

	t.Run("failed summary write removes the body", func(t *testing.T) {
		v := &failingVault{MemoryVault: vault.NewMemoryVault(), failPrefix: "metadata/"}
		s := NewVaultStore(v, encryption.NewGCMCipher(), dp.NewNopLogger())

		err := s.Save(ctx, sample("half"), dp.SaveOptions{})
		require.Error(t, err)
		assert.Zero(t, v.Len())
	})
}

func TestVaultStore_Load(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("wrong password is an authentication error", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("enc"), dp.SaveOptions{Encrypt: true, Password: "right"}))

		_, err := s.Load(ctx, "enc", "wrong")
		require.ErrorIs(t, err, dp.ErrAuthentication)
		assert.NotErrorIs(t, err, dp.ErrNotFound)
	})

	t.Run("wrong password with age", func(t *testing.T) {
		s := NewVaultStore(vault.NewMemoryVault(), encryption.NewAgeCipher(10), dp.NewNopLogger())
		require.NoError(t, s.Save(ctx, sample("enc"), dp.SaveOptions{Encrypt: true, Password: "right"}))

		_, err := s.Load(ctx, "enc", "wrong")
		require.ErrorIs(t, err, dp.ErrAuthentication)
	})

	t.Run("encrypted body without password", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("enc"), dp.SaveOptions{Encrypt: true, Password: "pw"}))

		_, err := s.Load(ctx, "enc", "")
		require.ErrorIs(t, err, dp.ErrEncrypted)
	})

	t.Run("age body opens with a gcm sealer configured", func(t *testing.T) {
		v := vault.NewMemoryVault()
		ageStore := NewVaultStore(v, encryption.NewAgeCipher(10), dp.NewNopLogger())
		snap := sample("mixed")
		require.NoError(t, ageStore.Save(ctx, snap, dp.SaveOptions{Encrypt: true, Password: "pw"}))

		gcmStore := NewVaultStore(v, encryption.NewGCMCipher(), dp.NewNopLogger())
		got, err := gcmStore.Load(ctx, "mixed", "pw")
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("plain binary body needs no password", func(t *testing.T) {
		s, v := newTestStore(t)
		snap := sample("bin")
		data, err := codec.EncodeBinary(snap)
		require.NoError(t, err)
		require.NoError(t, v.Put(ctx, "snapshots/bin.bin", bytes.NewReader(data), int64(len(data))))

		got, err := s.Load(ctx, "bin", "")
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("password is ignored for plain bodies", func(t *testing.T) {
		s, _ := newTestStore(t)
		snap := sample("plain")
		require.NoError(t, s.Save(ctx, snap, dp.SaveOptions{}))

		got, err := s.Load(ctx, "plain", "unused")
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("truncated body", func(t *testing.T) {
		s, v := newTestStore(t)
		require.NoError(t, v.Put(ctx, "snapshots/short.bin", strings.NewReader("tiny"), 4))

		_, err := s.Load(ctx, "short", "pw")
		require.ErrorIs(t, err, dp.ErrInvalidData)
	})

	t.Run("unreadable binary body falls back to json", func(t *testing.T) {
		s, v := newTestStore(t)
		snap := sample("legacy")
		require.NoError(t, s.Save(ctx, snap, dp.SaveOptions{}))
		garbage := []byte("DPSB\x01 not a zstd frame")
		require.NoError(t, v.Put(ctx, "snapshots/legacy.bin", bytes.NewReader(garbage), int64(len(garbage))))

		got, err := s.Load(ctx, "legacy", "")
		require.NoError(t, err)
		assert.Equal(t, snap, got)

		got, err = s.Load(ctx, "legacy", "pw")
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("corrupt sealed body falls back to json", func(t *testing.T) {
		s, v := newTestStore(t)
		snap := sample("both")
		require.NoError(t, s.Save(ctx, snap, dp.SaveOptions{}))
		require.NoError(t, v.Put(ctx, "snapshots/both.bin", strings.NewReader("tiny"), 4))

		got, err := s.Load(ctx, "both", "pw")
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("wrong password does not fall back to json", func(t *testing.T) {
		s, v := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("both"), dp.SaveOptions{Encrypt: true, Password: "pw"}))
		plain, err := codec.EncodeJSON(sample("both"))
		require.NoError(t, err)
		require.NoError(t, v.Put(ctx, "snapshots/both.json", bytes.NewReader(plain), int64(len(plain))))

		_, err = s.Load(ctx, "both", "wrong")
		require.ErrorIs(t, err, dp.ErrAuthentication)

		_, err = s.Load(ctx, "both", "")
		require.ErrorIs(t, err, dp.ErrEncrypted)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, err := s.Load(ctx, "nope", "")
		require.ErrorIs(t, err, dp.ErrNotFound)
	})
}

func TestVaultStore_ListSummaries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s, _ := newTestStore(t)
		got, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("newest first", func(t *testing.T) {
		s, _ := newTestStore(t)
		for i, id := range []string{"old", "newest", "middle"} {
			snap := sample(id)
			snap.CapturedAt = []int64{100, 300, 200}[i]
			opts := dp.SaveOptions{}
			if id == "middle" {
				opts = dp.SaveOptions{Encrypt: true, Password: "pw"}
			}
			require.NoError(t, s.Save(ctx, snap, opts))
		}

		got, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		ids := make([]string, len(got))
		for i, sum := range got {
			ids[i] = sum.ID
		}
		assert.Equal(t, []string{"newest", "middle", "old"}, ids)
		assert.Equal(t, uint64(3), got[0].FileCount)
		assert.Equal(t, uint64(2058), got[0].TotalSize)
	})

	t.Run("corrupt entries are skipped", func(t *testing.T) {
		s, v := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("good"), dp.SaveOptions{}))
		for key, content := range map[string]string{
			"metadata/bad.json":  "{not json",
			"metadata/noid.json": `{"drive_path":"/x"}`,
			"metadata/notes.txt": "ignored",
		} {
			require.NoError(t, v.Put(ctx, key, strings.NewReader(content), int64(len(content))))
		}

		got, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "good", got[0].ID)
	})

	t.Run("rebuilt from bodies without metadata directory", func(t *testing.T) {
		s, v := newTestStore(t)
		plain := sample("legacy")
		jsonBody, err := codec.EncodeJSON(plain)
		require.NoError(t, err)
		require.NoError(t, v.Put(ctx, "snapshots/legacy.json", bytes.NewReader(jsonBody), int64(len(jsonBody))))

		sealed, err := encryption.NewGCMCipher().Seal([]byte("whatever"), "pw")
		require.NoError(t, err)
		require.NoError(t, v.Put(ctx, "snapshots/locked.bin", bytes.NewReader(sealed), int64(len(sealed))))

		got, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []dp.SnapshotSummary{plain.Summary()}, got)
	})
}

func TestVaultStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes body and summary", func(t *testing.T) {
		s, v := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("a"), dp.SaveOptions{Encrypt: true, Password: "pw"}))
		require.NoError(t, s.Save(ctx, sample("b"), dp.SaveOptions{}))

		require.NoError(t, s.Delete(ctx, "a"))

		assert.False(t, exists(t, v, "snapshots/a.bin"))
		assert.False(t, exists(t, v, "metadata/a.json"))
		_, err := s.Load(ctx, "a", "pw")
		assert.ErrorIs(t, err, dp.ErrNotFound)

		got, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Save(ctx, sample("kept"), dp.SaveOptions{}))

		require.NoError(t, s.Delete(ctx, "never-saved"))
		require.NoError(t, s.Delete(ctx, "never-saved"))

		got, err := s.ListSummaries(ctx)
		require.NoError(t, err)
		for _, sum := range got {
			assert.NotEqual(t, "never-saved", sum.ID)
		}
		assert.Len(t, got, 1)
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	binary, err := codec.EncodeBinary(sample("c"))
	require.NoError(t, err)
	aged, err := encryption.NewAgeCipher(10).Seal([]byte("x"), "pw")
	require.NoError(t, err)

	tests := []struct {
		name       string
		ext        string
		data       []byte
		wantKind   BodyKind
		wantScheme string
		wantErr    error
	}{
		{name: "json", ext: ".json", data: []byte(`{"id":"c"}`), wantKind: BodyPlain},
		{name: "binary", ext: ".bin", data: binary, wantKind: BodyPlain},
		{name: "age", ext: ".bin", data: aged, wantKind: BodyEncrypted, wantScheme: encryption.SchemeAge},
		{name: "gcm", ext: ".bin", data: bytes.Repeat([]byte{0xAB}, 40), wantKind: BodyEncrypted, wantScheme: encryption.SchemeGCM},
		{name: "too short", ext: ".bin", data: []byte("short"), wantErr: dp.ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Classify(tt.ext, tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.wantScheme, body.Scheme)
		})
	}

	_, err = Classify(".txt", nil)
	assert.Error(t, err)
}

// failingVault fails every Put whose key starts with failPrefix.
type failingVault struct {
	*vault.MemoryVault
	failPrefix string
}

func (f *failingVault) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if strings.HasPrefix(key, f.failPrefix) {
		return errors.New("disk full")
	}
	return f.MemoryVault.Put(ctx, key, r, size)
}
