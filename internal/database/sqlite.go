// Package database keeps the operation catalog in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"dp-go/internal/database/migrations"
	"dp-go/internal/dp"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements dp.Catalog using SQLite.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog opens the catalog at path and brings its schema up to date.
// path can be a file path or ":memory:" for an in-memory catalog.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		if err := migrations.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating catalog: %w", err)
		}
		if err := migrations.CheckDBMigrationStatus(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("checking catalog schema: %w", err)
		}
	}

	return &SQLiteCatalog{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and the
	// CLI never writes concurrently.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// CreateOperation inserts a running operation.
func (s *SQLiteCatalog) CreateOperation(operation, parameters string, startedAt time.Time) (*dp.Operation, error) {
	startedAt = startedAt.UTC()
	res, err := s.db.Exec(
		"INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, 'running', ?)",
		operation, parameters, startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	return &dp.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  startedAt,
	}, nil
}

// FinishOperation records the outcome of an operation.
func (s *SQLiteCatalog) FinishOperation(id int64, status, snapshotID string, finishedAt time.Time) error {
	res, err := s.db.Exec(
		"UPDATE operations SET status = ?, snapshot_id = ?, finished_at = ? WHERE id = ?",
		status, snapshotID, finishedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("operation %d: %w", id, dp.ErrNotFound)
	}
	return nil
}

// ListOperations returns the newest operations first. limit <= 0 returns all.
func (s *SQLiteCatalog) ListOperations(limit int) ([]*dp.Operation, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, operation, parameters, status, snapshot_id, started_at, finished_at
		 FROM operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	ops := []*dp.Operation{}
	for rows.Next() {
		op := &dp.Operation{}
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.SnapshotID, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Compile-time check that SQLiteCatalog implements dp.Catalog interface
var _ dp.Catalog = (*SQLiteCatalog)(nil)
