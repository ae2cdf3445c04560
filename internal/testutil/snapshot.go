package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dp-go/internal/dp"
)

// NewSnapshot builds a snapshot with the given id from path/size pairs.
// Every file gets the same modification time.
func NewSnapshot(id, root string, files map[string]uint64) *dp.Snapshot {
	entries := []dp.FileRecord{{Path: root, IsDirectory: true, Modified: 1705314000}}
	for p, size := range files {
		entries = append(entries, dp.FileRecord{Path: filepath.Join(root, p), Size: size, Modified: 1705314000})
	}
	return dp.NewSnapshot(id, root, FixedClock().Now(), 2*time.Second, entries)
}

// WriteTree creates files under dir. Keys are slash-separated relative paths;
// a key ending in "/" creates an empty directory.
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatalf("creating directory %s: %v", p, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", p, err)
		}
	}
}
