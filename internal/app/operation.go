package app

import (
	"strings"

	"github.com/google/uuid"
)

// Operation status values stored in the catalog.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI invocation. Every operation gets a random ID that
// tags its log lines. Only store-mutating commands persist it in the catalog,
// which assigns CatalogID.
type Operation struct {
	ID         string
	CatalogID  int64
	Name       string
	Parameters string
	Status     string
	SnapshotID string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name string, parameters ...string) *Operation {
	return &Operation{
		ID:         uuid.NewString(),
		Name:       name,
		Parameters: strings.Join(parameters, " "),
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the catalog.
func (op *Operation) Persisted() bool {
	return op.CatalogID != 0
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.Status = StatusError
	}
	return err
}
