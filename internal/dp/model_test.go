package dp_test

import (
	"regexp"
	"testing"
	"time"

	"dp-go/internal/dp"
)

func TestNewSnapshot(t *testing.T) {
	captured := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	t.Run("counts only non-directory entries", func(t *testing.T) {
		t.Parallel()
		entries := []dp.FileRecord{
			{Path: "/root", IsDirectory: true},
			{Path: "/root/a", Size: 10},
			{Path: "/root/sub", IsDirectory: true},
			{Path: "/root/sub/b", Size: 32},
		}

		s := dp.NewSnapshot("id-1", "/root", captured, 2500*time.Millisecond, entries)

		if s.FileCount != 2 {
			t.Errorf("FileCount = %d, want 2", s.FileCount)
		}
		if s.TotalSize != 42 {
			t.Errorf("TotalSize = %d, want 42", s.TotalSize)
		}
		if s.CapturedAt != captured.Unix() {
			t.Errorf("CapturedAt = %d, want %d", s.CapturedAt, captured.Unix())
		}
		if s.ScanDuration != 2 {
			t.Errorf("ScanDuration = %d, want 2", s.ScanDuration)
		}
		if len(s.Entries) != 4 {
			t.Errorf("len(Entries) = %d, want 4", len(s.Entries))
		}
	})

	t.Run("nil entries become empty", func(t *testing.T) {
		t.Parallel()
		s := dp.NewSnapshot("id-2", "/empty", captured, 0, nil)
		if s.Entries == nil {
			t.Fatal("Entries is nil, want empty slice")
		}
		if s.FileCount != 0 || s.TotalSize != 0 {
			t.Errorf("FileCount, TotalSize = %d, %d, want 0, 0", s.FileCount, s.TotalSize)
		}
	})
}

func TestSnapshot_Summary(t *testing.T) {
	s := &dp.Snapshot{
		ID:           "abc",
		RootPath:     "/data",
		CapturedAt:   1700000000,
		FileCount:    3,
		TotalSize:    99,
		ScanDuration: 4,
		Entries:      []dp.FileRecord{{Path: "/data/x"}},
	}

	got := s.Summary()
	want := dp.SnapshotSummary{ID: "abc", RootPath: "/data", CapturedAt: 1700000000, FileCount: 3, TotalSize: 99, ScanDuration: 4}
	if got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
	if got.Duration() != 4*time.Second {
		t.Errorf("Duration() = %v, want 4s", got.Duration())
	}
}

func TestHashIDGenerator(t *testing.T) {
	gen := dp.HashIDGenerator{}
	captured := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	id := gen.NewID(`C:\Users\me`, captured)

	pattern := regexp.MustCompile(`^20240115T103000Z_[0-9a-f]{12}$`)
	if !pattern.MatchString(id) {
		t.Errorf("NewID() = %q, want match for %s", id, pattern)
	}

	other := gen.NewID(`C:\Users\me`, captured)
	if other == id {
		t.Errorf("NewID() returned %q twice for the same root and time", id)
	}
}

func TestEvery(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want []int64
	}{
		{name: "every event", n: 1, want: []int64{1, 2, 3, 4, 5, 6}},
		{name: "zero forwards everything", n: 0, want: []int64{1, 2, 3, 4, 5, 6}},
		{name: "every third", n: 3, want: []int64{3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			sink := dp.Every(tt.n, dp.ProgressFunc(func(ev dp.ProgressEvent) {
				got = append(got, ev.FilesScanned)
			}))
			for i := int64(1); i <= 6; i++ {
				sink.OnProgress(dp.ProgressEvent{FilesScanned: i})
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}
