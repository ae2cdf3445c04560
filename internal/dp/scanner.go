package dp

import "context"

// Scanner walks a file tree and captures it as a Snapshot.
type Scanner interface {
	// Scan walks root without following symbolic links, reporting each
	// visited entry to sink. Entries whose metadata cannot be read are
	// skipped. Returns an error wrapping ErrRootUnreadable if root itself
	// cannot be read, or ctx.Err() if the walk was cancelled.
	Scan(ctx context.Context, root string, sink ProgressSink) (*Snapshot, error)
}
