package dp

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DPService is the orchestration layer that coordinates the scanner and the
// snapshot store to perform the operations needed by the CLI.
type DPService struct {
	scanner Scanner
	store   SnapshotStore
	logger  Logger
}

// NewDPService creates a new DPService with the provided dependencies.
func NewDPService(scanner Scanner, store SnapshotStore, logger Logger) *DPService {
	return &DPService{
		scanner: scanner,
		store:   store,
		logger:  logger,
	}
}

// Scan walks root and returns the resulting snapshot without saving it.
func (s *DPService) Scan(ctx context.Context, root string, sink ProgressSink) (*Snapshot, error) {
	if sink == nil {
		sink = NopProgress{}
	}
	s.logger.Info("scan started", "root", root)

	snap, err := s.scanner.Scan(ctx, root, sink)
	if err != nil {
		s.logger.Error("scan failed", "root", root, "error", err)
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	s.logger.Info("scan finished",
		"id", snap.ID,
		"files", snap.FileCount,
		"entries", len(snap.Entries),
		"size", snap.TotalSize,
		"duration_s", snap.ScanDuration,
	)
	return snap, nil
}

// Save persists a snapshot.
func (s *DPService) Save(ctx context.Context, snap *Snapshot, opts SaveOptions) error {
	if err := s.store.Save(ctx, snap, opts); err != nil {
		return fmt.Errorf("saving snapshot %s: %w", snap.ID, err)
	}
	s.logger.Info("snapshot saved", "id", snap.ID, "encrypted", opts.Encrypt)
	return nil
}

// ScanAndSave scans root and persists the result. A missing password for an
// encrypted save is reported before the walk starts. Nothing is persisted
// when the scan fails.
func (s *DPService) ScanAndSave(ctx context.Context, root string, opts SaveOptions, sink ProgressSink) (*Snapshot, error) {
	if opts.Encrypt && opts.Password == "" {
		return nil, ErrPasswordRequired
	}

	snap, err := s.Scan(ctx, root, sink)
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, snap, opts); err != nil {
		return nil, err
	}
	return snap, nil
}

// Load reads a snapshot by id.
func (s *DPService) Load(ctx context.Context, id, password string) (*Snapshot, error) {
	snap, err := s.store.Load(ctx, id, password)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	return snap, nil
}

// ListSummaries returns the stored snapshot summaries, newest first.
func (s *DPService) ListSummaries(ctx context.Context) ([]SnapshotSummary, error) {
	summaries, err := s.store.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return summaries, nil
}

// Delete removes a snapshot. Deleting an unknown id is a no-op.
func (s *DPService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	s.logger.Info("snapshot deleted", "id", id)
	return nil
}

// ResolveID returns the stored snapshot id equal to ref, or the only one
// that starts with ref.
func (s *DPService) ResolveID(ctx context.Context, ref string) (string, error) {
	summaries, err := s.ListSummaries(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, sum := range summaries {
		if sum.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(sum.ID, ref) {
			matches = append(matches, sum.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("snapshot %s: %w", ref, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d snapshots", ErrAmbiguousID, ref, len(matches))
	}
}

// Compare loads two snapshots and classifies their differences.
// leftID is treated as the older side.
func (s *DPService) Compare(ctx context.Context, leftID, rightID, password string) (*ComparisonResult, error) {
	left, err := s.Load(ctx, leftID, password)
	if err != nil {
		return nil, err
	}
	right, err := s.Load(ctx, rightID, password)
	if err != nil {
		return nil, err
	}

	result := Compare(left, right)
	s.logger.Info("snapshots compared",
		"left", leftID,
		"right", rightID,
		"added", result.AddedCount,
		"deleted", result.DeletedCount,
		"modified", result.ModifiedCount,
		"unchanged", result.UnchangedCount,
	)
	return result, nil
}

// LatestPair returns the ids of the two most recent snapshots, older first.
func (s *DPService) LatestPair(ctx context.Context) (string, string, error) {
	summaries, err := s.ListSummaries(ctx)
	if err != nil {
		return "", "", err
	}
	if len(summaries) < 2 {
		return "", "", ErrNotEnoughSnapshots
	}
	return summaries[1].ID, summaries[0].ID, nil
}

// IsPasswordError reports whether err means a (different) password is needed.
func IsPasswordError(err error) bool {
	return errors.Is(err, ErrEncrypted) ||
		errors.Is(err, ErrPasswordRequired) ||
		errors.Is(err, ErrAuthentication)
}
