package dp

import "time"

// FileRecord is one filesystem entry captured by a scan.
// Size is meaningless for directories and is recorded as zero.
type FileRecord struct {
	Path        string `json:"path" yaml:"path"`
	Size        uint64 `json:"size" yaml:"size"`
	Modified    int64  `json:"modified" yaml:"modified"`
	IsDirectory bool   `json:"is_dir" yaml:"is_dir"`
}

// ModifiedTime returns Modified as a time.Time.
func (r FileRecord) ModifiedTime() time.Time {
	return time.Unix(r.Modified, 0)
}

// Snapshot is the immutable result of scanning a file tree.
//
// Entries keep traversal order. FileCount and TotalSize only account for
// non-directory entries. CapturedAt is in Unix seconds and ScanDuration in
// whole seconds, matching the on-disk field names.
type Snapshot struct {
	ID           string       `json:"id"`
	RootPath     string       `json:"drive_path"`
	CapturedAt   int64        `json:"timestamp"`
	FileCount    uint64       `json:"total_files"`
	TotalSize    uint64       `json:"total_size"`
	ScanDuration uint64       `json:"scan_duration"`
	Entries      []FileRecord `json:"files"`
}

// NewSnapshot builds a Snapshot from scanned entries, deriving FileCount and
// TotalSize. A nil entries slice is stored as an empty one.
func NewSnapshot(id, rootPath string, capturedAt time.Time, duration time.Duration, entries []FileRecord) *Snapshot {
	if entries == nil {
		entries = []FileRecord{}
	}

	var count, size uint64
	for _, e := range entries {
		if e.IsDirectory {
			continue
		}
		count++
		size += e.Size
	}

	return &Snapshot{
		ID:           id,
		RootPath:     rootPath,
		CapturedAt:   capturedAt.Unix(),
		FileCount:    count,
		TotalSize:    size,
		ScanDuration: uint64(duration / time.Second),
		Entries:      entries,
	}
}

// Summary returns the snapshot without its entries.
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:           s.ID,
		RootPath:     s.RootPath,
		CapturedAt:   s.CapturedAt,
		FileCount:    s.FileCount,
		TotalSize:    s.TotalSize,
		ScanDuration: s.ScanDuration,
	}
}

// SnapshotSummary is the lightweight projection of a Snapshot used to list
// history without loading every file record.
type SnapshotSummary struct {
	ID           string `json:"id" yaml:"id"`
	RootPath     string `json:"drive_path" yaml:"drive_path"`
	CapturedAt   int64  `json:"timestamp" yaml:"timestamp"`
	FileCount    uint64 `json:"total_files" yaml:"total_files"`
	TotalSize    uint64 `json:"total_size" yaml:"total_size"`
	ScanDuration uint64 `json:"scan_duration" yaml:"scan_duration"`
}

// CapturedTime returns CapturedAt as a time.Time in the local zone.
func (s SnapshotSummary) CapturedTime() time.Time {
	return time.Unix(s.CapturedAt, 0)
}

// Duration returns ScanDuration as a time.Duration.
func (s SnapshotSummary) Duration() time.Duration {
	return time.Duration(s.ScanDuration) * time.Second
}

// DiffStatus classifies a path that differs between two snapshots.
type DiffStatus string

const (
	StatusAdded    DiffStatus = "added"
	StatusDeleted  DiffStatus = "deleted"
	StatusModified DiffStatus = "modified"
)

// Title returns the capitalized status name ("Added", "Deleted", "Modified").
func (s DiffStatus) Title() string {
	switch s {
	case StatusAdded:
		return "Added"
	case StatusDeleted:
		return "Deleted"
	case StatusModified:
		return "Modified"
	default:
		return string(s)
	}
}

// FileDifference describes one changed path. Old fields are nil for added
// paths and new fields are nil for deleted ones.
type FileDifference struct {
	Path        string     `json:"path" yaml:"path"`
	Status      DiffStatus `json:"status" yaml:"status"`
	OldSize     *uint64    `json:"old_size" yaml:"old_size"`
	NewSize     *uint64    `json:"new_size" yaml:"new_size"`
	OldModified *int64     `json:"old_modified" yaml:"old_modified"`
	NewModified *int64     `json:"new_modified" yaml:"new_modified"`
}

// ComparisonResult is the classified difference between two snapshots.
// Unchanged paths are only counted.
type ComparisonResult struct {
	Left           SnapshotSummary  `json:"left" yaml:"left"`
	Right          SnapshotSummary  `json:"right" yaml:"right"`
	Differences    []FileDifference `json:"differences" yaml:"differences"`
	AddedCount     int              `json:"added_count" yaml:"added_count"`
	DeletedCount   int              `json:"deleted_count" yaml:"deleted_count"`
	ModifiedCount  int              `json:"modified_count" yaml:"modified_count"`
	UnchangedCount int              `json:"unchanged_count" yaml:"unchanged_count"`
}

// WithStatus returns the differences that have the given status, in order.
func (c *ComparisonResult) WithStatus(status DiffStatus) []FileDifference {
	var out []FileDifference
	for _, d := range c.Differences {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// HasChanges reports whether any path was added, deleted, or modified.
func (c *ComparisonResult) HasChanges() bool {
	return c.AddedCount+c.DeletedCount+c.ModifiedCount > 0
}
