package dp

import "time"

// Operation is one recorded CLI operation in the catalog.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	SnapshotID string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Catalog records the operations performed against a store.
type Catalog interface {
	// CreateOperation records a started operation and returns it with its ID set.
	CreateOperation(operation, parameters string, startedAt time.Time) (*Operation, error)

	// FinishOperation stores the final status and the snapshot the operation
	// produced or touched, if any.
	FinishOperation(id int64, status, snapshotID string, finishedAt time.Time) error

	// ListOperations returns up to limit operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// Close closes the catalog.
	Close() error
}
