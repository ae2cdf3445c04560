package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"

	"dp-go/internal/config"
	"dp-go/internal/database"
	"dp-go/internal/dp"
	"dp-go/internal/encryption"
	"dp-go/internal/export"
	"dp-go/internal/fs"
	"dp-go/internal/store"
	"dp-go/internal/vault"
)

// PasswordSource supplies the snapshot password on demand.
// confirm asks an interactive source to have the password typed twice.
type PasswordSource interface {
	Resolve(confirm bool) (string, error)
}

// Option customizes NewDPApp.
type Option func(*options)

type options struct {
	passwords PasswordSource
	stderr    io.Writer
	clock     dp.Clock
	ids       dp.IDGenerator
}

// WithPasswords sets where passwords come from. The default resolver reads
// DP_PASSWORD, the keyring (when enabled) and the terminal.
func WithPasswords(p PasswordSource) Option {
	return func(o *options) { o.passwords = p }
}

// WithStderr sets where warnings and errors are logged besides the log file.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithClock replaces the wall clock and snapshot ID generator.
func WithClock(clock dp.Clock, ids dp.IDGenerator) Option {
	return func(o *options) {
		o.clock = clock
		o.ids = ids
	}
}

// DPApp is the application layer between the CLI and DPService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths and snapshot references, and records store-mutating
// operations in the catalog. The caller must call Close when done.
type DPApp struct {
	cfg       *config.Config
	vault     dp.Vault
	catalog   dp.Catalog
	clock     dp.Clock
	service   *dp.DPService
	passwords PasswordSource
	logger    dp.Logger
	op        *Operation
	logFile   io.Closer
}

// NewDPApp creates a fully wired DPApp from the given config.
// operation names the CLI command being run (e.g. "scan", "delete").
func NewDPApp(ctx context.Context, cfg *config.Config, operation string, opts ...Option) (*DPApp, error) {
	o := options{stderr: os.Stderr, clock: dp.RealClock{}, ids: dp.HashIDGenerator{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.passwords == nil {
		o.passwords = NewPasswordResolver(nil, cfg.Encryption.UseKeyring)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("vault not usable: %w", err)
	}

	sealer, err := encryption.NewCipherFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	catalog, err := database.NewCatalogFromConfig(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	op := NewOperation(operation)
	slogger, logFile, err := newLogger(cfg.LogDir, cfg.Log, op.ID, o.stderr)
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	scanner := fs.NewOSScanner(cfg.Scan.Ignore, o.clock, o.ids, logger)
	st := store.NewVaultStore(v, sealer, logger)

	return &DPApp{
		cfg:       cfg,
		vault:     v,
		catalog:   catalog,
		clock:     o.clock,
		service:   dp.NewDPService(scanner, st, logger),
		passwords: o.passwords,
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// persistOperation records the operation in the catalog, giving it an ID.
// Only store-mutating commands call it.
func (a *DPApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	rec, err := a.catalog.CreateOperation(a.op.Name, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.op.CatalogID = rec.ID
	return nil
}

// Scan resolves rawPath, scans it and saves the snapshot. Progress is sent
// to sink every scan.progress_every entries. With encrypt set the password
// is obtained before the walk starts.
func (a *DPApp) Scan(ctx context.Context, rawPath string, encrypt bool, sink dp.ProgressSink) (*dp.Snapshot, error) {
	root, rootErr := fs.ResolveRoot(rawPath)
	params := root
	if rootErr != nil {
		params = rawPath
	}
	if err := a.persistOperation(params); err != nil {
		return nil, a.op.Fail(err)
	}
	if rootErr != nil {
		return nil, a.op.Fail(rootErr)
	}

	opts := dp.SaveOptions{Encrypt: encrypt}
	if encrypt {
		pw, err := a.passwords.Resolve(true)
		if err != nil {
			return nil, a.op.Fail(err)
		}
		opts.Password = pw
	}

	if sink == nil {
		sink = dp.NopProgress{}
	}
	snap, err := a.service.ScanAndSave(ctx, root, opts, dp.Every(a.cfg.Scan.ProgressEvery, sink))
	if err != nil {
		return nil, a.op.Fail(err)
	}
	a.op.SnapshotID = snap.ID
	return snap, nil
}

// List returns the stored snapshot summaries, newest first.
func (a *DPApp) List(ctx context.Context) ([]dp.SnapshotSummary, error) {
	return a.service.ListSummaries(ctx)
}

// View loads the snapshot that ref names, asking for a password only when
// the body turns out to be encrypted.
func (a *DPApp) View(ctx context.Context, ref string) (*dp.Snapshot, error) {
	id, err := a.service.ResolveID(ctx, ref)
	if err != nil {
		return nil, err
	}

	var snap *dp.Snapshot
	err = a.withPassword(func(pw string) error {
		var err error
		snap, err = a.service.Load(ctx, id, pw)
		return err
	})
	return snap, err
}

// Compare classifies the differences between two snapshots. With both refs
// empty it compares the two most recent snapshots, older on the left.
func (a *DPApp) Compare(ctx context.Context, leftRef, rightRef string) (*dp.ComparisonResult, error) {
	var leftID, rightID string
	var err error

	switch {
	case leftRef == "" && rightRef == "":
		leftID, rightID, err = a.service.LatestPair(ctx)
		if err != nil {
			return nil, err
		}
	case leftRef == "" || rightRef == "":
		return nil, fmt.Errorf("compare needs two snapshot ids or none")
	default:
		if leftID, err = a.service.ResolveID(ctx, leftRef); err != nil {
			return nil, err
		}
		if rightID, err = a.service.ResolveID(ctx, rightRef); err != nil {
			return nil, err
		}
	}

	var result *dp.ComparisonResult
	err = a.withPassword(func(pw string) error {
		var err error
		result, err = a.service.Compare(ctx, leftID, rightID, pw)
		return err
	})
	return result, err
}

// Export compares two snapshots and writes the result to w.
func (a *DPApp) Export(ctx context.Context, leftRef, rightRef string, format export.Format, w io.Writer) error {
	result, err := a.Compare(ctx, leftRef, rightRef)
	if err != nil {
		return err
	}
	if err := export.Write(w, format, result); err != nil {
		return fmt.Errorf("exporting comparison: %w", err)
	}
	return nil
}

// Delete removes the snapshot with exactly this id and reports whether it
// was stored. Unlike the read-only commands it does not accept a prefix, so
// an unknown id is a no-op.
func (a *DPApp) Delete(ctx context.Context, id string) (bool, error) {
	if err := a.persistOperation(id); err != nil {
		return false, a.op.Fail(err)
	}

	summaries, err := a.service.ListSummaries(ctx)
	if err != nil {
		return false, a.op.Fail(err)
	}
	found := lo.ContainsBy(summaries, func(s dp.SnapshotSummary) bool { return s.ID == id })

	a.op.SnapshotID = id
	if err := a.service.Delete(ctx, id); err != nil {
		return false, a.op.Fail(err)
	}
	return found, nil
}

// History returns up to limit recorded operations, newest first.
func (a *DPApp) History(limit int) ([]*dp.Operation, error) {
	ops, err := a.catalog.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return ops, nil
}

// withPassword runs fn without a password first and retries once with a
// resolved password if the data turned out to be encrypted.
func (a *DPApp) withPassword(fn func(password string) error) error {
	err := fn("")
	if err == nil || !dp.IsPasswordError(err) {
		return err
	}

	pw, perr := a.passwords.Resolve(false)
	if perr != nil {
		if errors.Is(perr, dp.ErrPasswordRequired) {
			return err
		}
		return perr
	}
	return fn(pw)
}

// Close finalizes the operation record and closes all resources.
func (a *DPApp) Close() error {
	var errs []error

	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status)
	if a.op.Persisted() {
		if err := a.catalog.FinishOperation(a.op.CatalogID, a.op.Status, a.op.SnapshotID, a.clock.Now()); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
	}
	if err := a.catalog.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing catalog: %w", err))
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log: %w", err))
		}
	}
	return errors.Join(errs...)
}
