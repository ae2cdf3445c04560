package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dp-go/internal/config"
	"dp-go/internal/dp"
)

// CatalogFileName is the SQLite file created under the catalog data dir.
const CatalogFileName = "operations.db"

// NewCatalogFromConfig creates a Catalog implementation based on the catalog config type.
func NewCatalogFromConfig(cfg config.CatalogConfig) (dp.Catalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		c, err := NewSQLiteCatalog(filepath.Join(cfg.DataDir, CatalogFileName))
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory":
		c, err := NewSQLiteCatalog(":memory:")
		if err != nil {
			return nil, err
		}
		return c, nil
	case "none":
		return NopCatalog{}, nil
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}
