package dp

import (
	"cmp"
	"slices"
)

// Compare classifies every path across left and right.
//
// Paths only in right are added, paths only in left are deleted, and paths
// in both are modified when size or modification time differ. Paths with an
// identical (size, modified) pair are counted as unchanged even if their
// contents differ, since contents are never read.
//
// Differences are ordered added, deleted, modified, each group sorted by path.
// Compare performs no I/O and does not modify its arguments.
func Compare(left, right *Snapshot) *ComparisonResult {
	leftByPath := indexByPath(left.Entries)
	rightByPath := indexByPath(right.Entries)

	var added, deleted, modified []FileDifference
	unchanged := 0

	for path, r := range rightByPath {
		l, ok := leftByPath[path]
		if !ok {
			added = append(added, FileDifference{
				Path:        path,
				Status:      StatusAdded,
				NewSize:     ptr(r.Size),
				NewModified: ptr(r.Modified),
			})
			continue
		}
		if l.Size == r.Size && l.Modified == r.Modified {
			unchanged++
			continue
		}
		modified = append(modified, FileDifference{
			Path:        path,
			Status:      StatusModified,
			OldSize:     ptr(l.Size),
			NewSize:     ptr(r.Size),
			OldModified: ptr(l.Modified),
			NewModified: ptr(r.Modified),
		})
	}

	for path, l := range leftByPath {
		if _, ok := rightByPath[path]; ok {
			continue
		}
		deleted = append(deleted, FileDifference{
			Path:        path,
			Status:      StatusDeleted,
			OldSize:     ptr(l.Size),
			OldModified: ptr(l.Modified),
		})
	}

	byPath := func(a, b FileDifference) int { return cmp.Compare(a.Path, b.Path) }
	slices.SortFunc(added, byPath)
	slices.SortFunc(deleted, byPath)
	slices.SortFunc(modified, byPath)

	diffs := make([]FileDifference, 0, len(added)+len(deleted)+len(modified))
	diffs = append(diffs, added...)
	diffs = append(diffs, deleted...)
	diffs = append(diffs, modified...)

	return &ComparisonResult{
		Left:           left.Summary(),
		Right:          right.Summary(),
		Differences:    diffs,
		AddedCount:     len(added),
		DeletedCount:   len(deleted),
		ModifiedCount:  len(modified),
		UnchangedCount: unchanged,
	}
}

// indexByPath builds a path-keyed lookup. A repeated path keeps its last record.
func indexByPath(entries []FileRecord) map[string]FileRecord {
	m := make(map[string]FileRecord, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

func ptr[T any](v T) *T { return &v }
