package database

import (
	"time"

	"dp-go/internal/dp"
)

// NopCatalog records nothing. It backs the "none" catalog type.
type NopCatalog struct{}

func (NopCatalog) CreateOperation(operation, parameters string, startedAt time.Time) (*dp.Operation, error) {
	return &dp.Operation{Operation: operation, Parameters: parameters, Status: "running", StartedAt: startedAt}, nil
}

func (NopCatalog) FinishOperation(int64, string, string, time.Time) error { return nil }

func (NopCatalog) ListOperations(int) ([]*dp.Operation, error) { return []*dp.Operation{}, nil }

func (NopCatalog) Close() error { return nil }

var _ dp.Catalog = NopCatalog{}
