package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dp-go/internal/dp"
)

// OSScanner is the real filesystem implementation of dp.Scanner.
// It walks with filepath.WalkDir, which never follows symbolic links;
// links are recorded as entries of their own.
type OSScanner struct {
	ignore []string
	clock  dp.Clock
	ids    dp.IDGenerator
	logger dp.Logger
}

// NewOSScanner creates a scanner. ignore holds patterns applied on top of
// the scan root's .dpignore file.
func NewOSScanner(ignore []string, clock dp.Clock, ids dp.IDGenerator, logger dp.Logger) *OSScanner {
	return &OSScanner{
		ignore: ignore,
		clock:  clock,
		ids:    ids,
		logger: logger,
	}
}

// ResolveRoot returns the absolute, symlink-free form of a scan root.
// Any failure to reach the root is reported as dp.ErrRootUnreadable.
func ResolveRoot(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("%w: resolving absolute path: %v", dp.ErrRootUnreadable, err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", dp.ErrRootUnreadable, err)
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", fmt.Errorf("%w: %v", dp.ErrRootUnreadable, err)
	}
	return resolved, nil
}

// Scan walks root depth-first and returns the snapshot of everything found.
// Entries whose metadata cannot be read are skipped. The root itself must be
// readable; a root that is a file yields a single-entry snapshot.
func (s *OSScanner) Scan(ctx context.Context, root string, sink dp.ProgressSink) (*dp.Snapshot, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	matcher := s.matcherFor(absRoot)

	start := time.Now()
	entries := []dp.FileRecord{}
	var totalSize uint64
	var skipped int

	walkErr := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == absRoot {
				return fmt.Errorf("%w: %v", dp.ErrRootUnreadable, err)
			}
			// A directory that cannot be listed was already recorded on the
			// first visit; only its children are lost.
			skipped++
			s.logger.Debug("skipping unreadable entry", "path", p, "error", err)
			return nil
		}

		if p != absRoot {
			rel, relErr := filepath.Rel(absRoot, p)
			if relErr == nil && matcher.Match(rel, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		info, err := d.Info()
		if err != nil {
			skipped++
			s.logger.Debug("skipping entry without metadata", "path", p, "error", err)
			return nil
		}

		rec := dp.FileRecord{
			Path:        p,
			Modified:    unixSeconds(info.ModTime()),
			IsDirectory: d.IsDir(),
		}
		if !rec.IsDirectory {
			rec.Size = uint64(max(info.Size(), 0))
			totalSize += rec.Size
		}
		entries = append(entries, rec)

		sink.OnProgress(dp.ProgressEvent{
			FilesScanned: int64(len(entries)),
			CurrentPath:  p,
			TotalSize:    totalSize,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, walkErr)
	}

	duration := time.Since(start)
	capturedAt := s.clock.Now()

	if skipped > 0 {
		s.logger.Warn("entries skipped during scan", "root", absRoot, "count", skipped)
	}

	return dp.NewSnapshot(s.ids.NewID(absRoot, capturedAt), absRoot, capturedAt, duration, entries), nil
}

// matcherFor combines the configured patterns with the root's ignore file.
func (s *OSScanner) matcherFor(absRoot string) *IgnoreMatcher {
	patterns := append([]string{}, s.ignore...)

	fromFile, err := ParseIgnoreFile(filepath.Join(absRoot, IgnoreFileName))
	if err != nil {
		// The root is a file or the ignore file is unreadable; neither stops a scan.
		s.logger.Debug("ignore file not used", "root", absRoot, "error", err)
	}
	patterns = append(patterns, fromFile...)

	return NewIgnoreMatcher(patterns)
}

// unixSeconds truncates t to whole seconds. Zero and pre-epoch times map to 0.
func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	sec := t.Unix()
	if sec < 0 {
		return 0
	}
	return sec
}

// Compile-time check that OSScanner implements dp.Scanner interface
var _ dp.Scanner = (*OSScanner)(nil)
