// Package store persists snapshots in a dp.Vault.
//
// Layout:
//
//	snapshots/<id>.bin   sealed (or plain binary) body
//	snapshots/<id>.json  plain pretty JSON body
//	metadata/<id>.json   summary, always plain
package store

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"

	"dp-go/internal/codec"
	"dp-go/internal/dp"
	"dp-go/internal/encryption"
)

const (
	snapshotsDir = "snapshots"
	metadataDir  = "metadata"
)

// VaultStore implements dp.SnapshotStore on top of a dp.Vault.
type VaultStore struct {
	vault   dp.Vault
	sealer  dp.Cipher
	openers map[string]dp.Cipher
	logger  dp.Logger
}

var _ dp.SnapshotStore = (*VaultStore)(nil)

// NewVaultStore creates a store. sealer encrypts new bodies; bodies sealed
// with any known scheme can be opened regardless of sealer.
func NewVaultStore(vault dp.Vault, sealer dp.Cipher, logger dp.Logger) *VaultStore {
	openers := map[string]dp.Cipher{
		encryption.SchemeGCM: encryption.NewGCMCipher(),
		encryption.SchemeAge: encryption.NewAgeCipher(0),
	}
	openers[sealer.Scheme()] = sealer

	return &VaultStore{
		vault:   vault,
		sealer:  sealer,
		openers: openers,
		logger:  logger,
	}
}

func bodyKey(id, ext string) string { return path.Join(snapshotsDir, id+ext) }
func summaryKey(id string) string   { return path.Join(metadataDir, id+extJSON) }

// validateID rejects ids that are not safe as a single file name.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, "/\\:*?\"<>|\x00") {
		return fmt.Errorf("%w: bad snapshot id %q", dp.ErrInvalidData, id)
	}
	return nil
}

// Save writes the body, then the summary. If the summary cannot be written
// the body is removed again so the two never disagree.
func (s *VaultStore) Save(ctx context.Context, snap *dp.Snapshot, opts dp.SaveOptions) error {
	if opts.Encrypt && opts.Password == "" {
		return dp.ErrPasswordRequired
	}
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", dp.ErrInvalidData)
	}
	if err := validateID(snap.ID); err != nil {
		return err
	}

	var data []byte
	var ext, staleExt string
	if opts.Encrypt {
		encoded, err := codec.EncodeBinary(snap)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		data, err = s.sealer.Seal(encoded, opts.Password)
		if err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		ext, staleExt = extBinary, extJSON
	} else {
		var err error
		data, err = codec.EncodeJSON(snap)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		ext, staleExt = extJSON, extBinary
	}

	summary, err := codec.EncodeSummary(snap.Summary())
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	key := bodyKey(snap.ID, ext)
	if err := s.vault.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("writing snapshot body: %w", err)
	}

	if err := s.vault.Put(ctx, summaryKey(snap.ID), bytes.NewReader(summary), int64(len(summary))); err != nil {
		if delErr := s.vault.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error("failed to remove body after summary write failed", "id", snap.ID, "error", delErr)
		}
		return fmt.Errorf("writing snapshot summary: %w", err)
	}

	// A re-save with the other format must not leave the old body behind,
	// since load prefers .bin.
	if err := s.vault.Delete(ctx, bodyKey(snap.ID, staleExt)); err != nil {
		s.logger.Warn("failed to remove stale snapshot body", "id", snap.ID, "error", err)
	}

	s.logger.Debug("snapshot saved", "id", snap.ID, "key", key, "bytes", len(data), "encrypted", opts.Encrypt)
	return nil
}

// Load reads a snapshot body, probing .bin before the legacy .json body.
// A .bin body that cannot be read falls back to .json when one exists,
// unless the failure is about the password.
func (s *VaultStore) Load(ctx context.Context, id, password string) (*dp.Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var binErr error
	for _, ext := range []string{extBinary, extJSON} {
		body, err := s.readBody(ctx, id, ext)
		if errors.Is(err, dp.ErrNotFound) {
			continue
		}
		if err == nil {
			var snap *dp.Snapshot
			if snap, err = s.openBody(id, body, password); err == nil {
				return snap, nil
			}
		}
		if ext != extBinary || dp.IsPasswordError(err) {
			return nil, err
		}
		s.logger.Debug("binary body unreadable, trying json", "id", id, "error", err)
		binErr = err
	}
	if binErr != nil {
		return nil, binErr
	}
	return nil, fmt.Errorf("snapshot %s: %w", id, dp.ErrNotFound)
}

func (s *VaultStore) readBody(ctx context.Context, id, ext string) (Body, error) {
	var buf bytes.Buffer
	err := s.vault.Get(ctx, bodyKey(id, ext), &buf)
	if errors.Is(err, dp.ErrNotFound) {
		return Body{}, err
	}
	if err != nil {
		return Body{}, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	body, err := Classify(ext, buf.Bytes())
	if err != nil {
		return Body{}, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return body, nil
}

func (s *VaultStore) openBody(id string, body Body, password string) (*dp.Snapshot, error) {
	switch body.Kind {
	case BodyPlain:
		snap, err := decodePlain(body.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
		}
		return snap, nil

	case BodyEncrypted:
		if password == "" {
			return nil, fmt.Errorf("snapshot %s: %w", id, dp.ErrEncrypted)
		}
		opener, ok := s.openers[body.Scheme]
		if !ok {
			return nil, fmt.Errorf("snapshot %s: unsupported encryption scheme %q", id, body.Scheme)
		}
		plaintext, err := opener.Open(body.Data, password)
		if err != nil {
			return nil, fmt.Errorf("decrypting snapshot %s: %w", id, err)
		}
		snap, err := decodePlain(plaintext)
		if err != nil {
			return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
		}
		return snap, nil

	default:
		return nil, fmt.Errorf("snapshot %s: unexpected body kind %v", id, body.Kind)
	}
}

// ListSummaries returns all readable summaries, newest first. Unreadable
// entries are skipped. Without a metadata directory the summaries are
// rebuilt from plain bodies.
func (s *VaultStore) ListSummaries(ctx context.Context) ([]dp.SnapshotSummary, error) {
	names, err := s.vault.List(ctx, metadataDir)
	if errors.Is(err, dp.ErrNotFound) {
		return s.legacySummaries(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}

	summaries := make([]dp.SnapshotSummary, 0, len(names))
	for _, name := range lo.Filter(names, func(n string, _ int) bool { return strings.HasSuffix(n, extJSON) }) {
		var buf bytes.Buffer
		if err := s.vault.Get(ctx, path.Join(metadataDir, name), &buf); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("skipping unreadable summary", "name", name, "error", err)
			continue
		}
		summary, err := codec.DecodeSummary(buf.Bytes())
		if err != nil {
			s.logger.Debug("skipping corrupt summary", "name", name, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	sortNewestFirst(summaries)
	return summaries, nil
}

// legacySummaries derives summaries from bodies readable without a password.
func (s *VaultStore) legacySummaries(ctx context.Context) ([]dp.SnapshotSummary, error) {
	names, err := s.vault.List(ctx, snapshotsDir)
	if errors.Is(err, dp.ErrNotFound) {
		return []dp.SnapshotSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	ids := lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		ext := path.Ext(n)
		return strings.TrimSuffix(n, ext), ext == extBinary || ext == extJSON
	}))

	summaries := make([]dp.SnapshotSummary, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Load(ctx, id, "")
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("skipping snapshot without readable body", "id", id, "error", err)
			continue
		}
		summaries = append(summaries, snap.Summary())
	}

	sortNewestFirst(summaries)
	return summaries, nil
}

func sortNewestFirst(summaries []dp.SnapshotSummary) {
	slices.SortFunc(summaries, func(a, b dp.SnapshotSummary) int {
		if c := cmp.Compare(b.CapturedAt, a.CapturedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// Delete removes both body variants and the summary. Missing objects are
// ignored, so deleting an unknown id succeeds.
func (s *VaultStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	var errs []error
	for _, key := range []string{bodyKey(id, extBinary), bodyKey(id, extJSON), summaryKey(id)} {
		if err := s.vault.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}

	s.logger.Debug("snapshot deleted", "id", id)
	return nil
}
