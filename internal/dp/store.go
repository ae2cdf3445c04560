package dp

import "context"

// SaveOptions controls how a snapshot body is written.
type SaveOptions struct {
	Encrypt  bool
	Password string
}

// SnapshotStore persists snapshots as a full body plus a summary entry.
type SnapshotStore interface {
	// Save writes the snapshot body and its summary. When opts.Encrypt is set
	// and opts.Password is empty it fails with ErrPasswordRequired before
	// touching storage.
	Save(ctx context.Context, snap *Snapshot, opts SaveOptions) error

	// Load reads a snapshot by id. password may be empty.
	Load(ctx context.Context, id, password string) (*Snapshot, error)

	// ListSummaries returns all readable summaries, newest first.
	ListSummaries(ctx context.Context) ([]SnapshotSummary, error)

	// Delete removes the body and summary for id. Missing files are ignored.
	Delete(ctx context.Context, id string) error
}
