package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"bckt-go/internal/archiver"
	"bckt-go/internal/bckt"
	"bckt-go/internal/cache"
	"bckt-go/internal/config"
	"bckt-go/internal/database"
	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/encryption"
	"bckt-go/internal/fs"
	"bckt-go/internal/metrics"
	"bckt-go/internal/vault"
)

// Options adjust how an App is built for one invocation.
type Options struct {
	// Verbose enables debug logging.
	Verbose bool
	// NoCache makes the stats cache miss on every read.
	NoCache bool
	// SkipMigrationCheck opens a database whose schema is missing or stale.
	// Only `db init` sets it.
	SkipMigrationCheck bool
}

// App is the application layer between the CLI and bckt.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI arguments, and records mutating commands as runs.
type App struct {
	cfg       *config.Config
	db        bckt.Database
	vault     bckt.Vault
	fsmgr     bckt.FilesystemManager
	encryptor bckt.Encryptor
	cache     *cache.Cache
	service   *bckt.Service
	logger    *slog.Logger
	clock     bckt.Clock
	ids       bckt.IDGenerator
	op        *Operation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Run", "AddTarget")
// and parameters its arguments. The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation, parameters string, opts Options) (*App, error) {
	clock := bckt.RealClock{}

	opID := clock.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	blog := &slogAdapter{l: logger}

	var closers []func() error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		logFile.Close()
		return nil, err
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return fail(fmt.Errorf("creating database: %w", err))
	}
	closers = append(closers, db.Close)

	if !opts.SkipMigrationCheck {
		if err := db.CheckMigrations(); err != nil {
			return fail(fmt.Errorf("database schema out of date (run `bckt db init`): %w", err))
		}
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return fail(fmt.Errorf("creating vault: %w", err))
	}

	c, err := cache.NewFromConfig(cfg.Cache, cache.Disabled(opts.NoCache))
	if err != nil {
		return fail(fmt.Errorf("creating stats cache: %w", err))
	}
	closers = append(closers, c.Close)

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fail(fmt.Errorf("creating encryptor: %w", err))
	}
	if !enc.IsConfigured() {
		return fail(fmt.Errorf("encryption keys missing: run `bckt config keys`"))
	}

	fsmgr := fs.NewOSFilesystemManager(blog)
	arch := archiver.NewTarArchiver(cfg.Archiver, blog)

	svc := bckt.NewService(bckt.Deps{
		Database:  db,
		Vault:     v,
		Fsmgr:     fsmgr,
		Archiver:  arch,
		Encryptor: enc,
		Cache:     c,
		Logger:    blog,
		Clock:     clock,
	}, bckt.Options{
		WorkingFolder:         cfg.WorkingFolder,
		StorageCostPerGBMonth: cfg.Pricing.StorageCostPerGBMonth,
	})

	ids := bckt.UUIDGenerator{}
	return &App{
		cfg:       cfg,
		db:        db,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		cache:     c,
		service:   svc,
		logger:    logger,
		clock:     clock,
		ids:       ids,
		op:        NewOperation(ids.New(), operation, parameters, clock.Now().UTC()),
		logFile:   logFile,
	}, nil
}

// Service exposes the engine for callers that need a read-only query.
func (a *App) Service() *bckt.Service {
	return a.service
}

// beginOperation saves op as a running run row. It is a no-op for an
// operation that is already persisted.
func (a *App) beginOperation(op *Operation) error {
	if op.Persisted() {
		return nil
	}
	if _, err := a.db.CreateRun(op.ID, op.Command, op.Parameters, op.StartedAt); err != nil {
		return fmt.Errorf("persisting run record: %w", err)
	}
	op.persisted = true
	return nil
}

// finishOperation writes the status and summary of a persisted operation.
func (a *App) finishOperation(op *Operation) error {
	if !op.Persisted() {
		return nil
	}
	summary, err := op.SummaryJSON()
	if err != nil {
		a.logger.Warn("run summary not recorded", "run", op.ID, "error", err)
	}
	if err := a.db.FinishRun(op.ID, op.Status, summary, a.clock.Now().UTC()); err != nil {
		return fmt.Errorf("finishing run record: %w", err)
	}
	return nil
}

// persistOperation saves the invocation's operation. Only DB-mutating
// commands call it.
func (a *App) persistOperation() error {
	return a.beginOperation(a.op)
}

// InitDatabase migrates the record store to the latest schema.
func (a *App) InitDatabase() error {
	if err := a.db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	if err := a.persistOperation(); err != nil {
		return err
	}
	a.logger.Info("database initialized")
	return nil
}

// AddTarget registers a new target.
func (a *App) AddTarget(nt bckt.NewTarget) (*sqlc.Target, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	t, err := a.service.AddTarget(nt)
	return t, a.op.Record(t, err)
}

// EditTarget changes the given policy fields of a target.
func (a *App) EditTarget(name string, edit bckt.TargetEdit) (*sqlc.Target, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	t, err := a.service.EditTarget(name, edit)
	return t, a.op.Record(t, err)
}

// SetTargetActive pauses or unpauses a target.
func (a *App) SetTargetActive(name string, active bool) (*sqlc.Target, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	t, err := a.service.SetTargetActive(name, active)
	return t, a.op.Record(t, err)
}

// TargetStatuses returns the status of one target or all of them.
func (a *App) TargetStatuses(ctx context.Context, name string, detailed bool) ([]*bckt.TargetStatus, error) {
	return a.service.TargetStatuses(ctx, name, detailed)
}

// ListArchives returns the archives of one target or all of them.
func (a *App) ListArchives(ctx context.Context, target string) ([]*bckt.ArchiveView, error) {
	return a.service.ListArchives(ctx, target)
}

// LastArchive returns the newest archive that still exists somewhere.
func (a *App) LastArchive(ctx context.Context, target string) (*bckt.ArchiveView, error) {
	return a.service.LastArchive(ctx, target)
}

// Prune deletes older local archive copies.
func (a *App) Prune(ctx context.Context, target string, aggressive, dryRun bool) (bckt.ReclaimResult, error) {
	if !dryRun {
		if err := a.persistOperation(); err != nil {
			return nil, err
		}
	}
	res, err := a.service.Prune(ctx, target, aggressive, dryRun)
	return res, a.op.Record(res, err)
}

// Restore unpacks a local archive and returns the destination directory.
func (a *App) Restore(ctx context.Context, archiveID int64) (string, error) {
	return a.service.RestoreArchive(ctx, archiveID)
}

// Repair reconciles the records with local and remote artifacts.
func (a *App) Repair(ctx context.Context, dryRun bool) (*bckt.RepairReport, error) {
	if !dryRun {
		if err := a.persistOperation(); err != nil {
			return nil, err
		}
	}
	report, err := a.service.Repair(ctx, dryRun)
	return report, a.op.Record(report, err)
}

// BackupDatabase writes a copy of the record store to dest.
func (a *App) BackupDatabase(dest string) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.op.Record(dest, a.service.BackupDatabase(dest))
}

// GetHistory returns the most recent runs.
func (a *App) GetHistory(limit int) ([]*sqlc.Run, error) {
	return a.service.GetHistory(limit)
}

// ValidateVault checks the remote store can be reached.
func (a *App) ValidateVault(ctx context.Context) error {
	if err := a.vault.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("vault %s: %w", a.vault.Name(), err)
	}
	return nil
}

// Run executes the backup workflow for one target or all of them.
// Every run is recorded, dry runs included.
func (a *App) Run(ctx context.Context, target string, opts bckt.RunOptions) (*bckt.RunSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	return a.runOnce(ctx, a.op, target, opts)
}

func (a *App) runOnce(ctx context.Context, op *Operation, target string, opts bckt.RunOptions) (*bckt.RunSummary, error) {
	summary, err := a.service.Run(ctx, target, opts)
	if err == nil && summary.Failures > 0 {
		op.Status = StatusError
	}
	if summary != nil && !opts.DryRun {
		if merr := a.writeMetrics(summary); merr != nil {
			a.logger.Warn("metrics not written", "error", merr)
		}
	}
	return summary, op.Record(summary, err)
}

// writeMetrics exports the run to the configured textfile, if any.
func (a *App) writeMetrics(summary *bckt.RunSummary) error {
	path := a.cfg.Metrics.TextfilePath
	if path == "" {
		return nil
	}
	rec := metrics.NewRecorder()
	rec.Observe(summary)
	return rec.WriteTextfile(path)
}

// Schedule runs every target on the cron spec until ctx is done.
// A tick that fires while the previous run is still going is skipped.
// Each tick is recorded as its own run.
func (a *App) Schedule(ctx context.Context, spec string, opts bckt.RunOptions) error {
	if spec == "" {
		spec = a.cfg.Schedule.Spec
	}

	cl := cronLogger{l: a.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	c.Schedule(sched, cron.FuncJob(func() { a.scheduledRun(ctx, opts) }))

	c.Start()
	a.logger.Info("scheduler started", "spec", spec,
		"next", sched.Next(a.clock.Now()).UTC().Format("2006-01-02T15:04:05Z"))

	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info("scheduler stopped")
	return nil
}

func (a *App) scheduledRun(ctx context.Context, opts bckt.RunOptions) {
	if ctx.Err() != nil {
		return
	}
	op := NewOperation(a.ids.New(), "Run", "scheduled", a.clock.Now().UTC())
	if err := a.beginOperation(op); err != nil {
		a.logger.Error("scheduled run not started", "error", err)
		return
	}
	if _, err := a.runOnce(ctx, op, "", opts); err != nil {
		a.logger.Error("scheduled run failed", "run", op.ID, "error", err)
	}
	if err := a.finishOperation(op); err != nil {
		a.logger.Error("scheduled run not recorded", "run", op.ID, "error", err)
	}
}

// Close finalizes the operation and closes all resources.
func (a *App) Close() error {
	var errs []error

	if err := a.finishOperation(a.op); err != nil {
		errs = append(errs, err)
	}
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing stats cache: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// SetupKeys generates the encryption key pair, protecting the private key
// with passphrase. It returns the recipient archives will be sealed for, or
// "" when the encryptor has none.
func SetupKeys(cfg config.EncryptionConfig, passphrase string) (string, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return "", err
	}
	if err := enc.Setup(passphrase); err != nil {
		return "", fmt.Errorf("setting up keys: %w", err)
	}
	if age, ok := enc.(*encryption.AgeEncryptor); ok {
		return age.Recipient()
	}
	return "", nil
}

// DecryptArchive decrypts an archive downloaded from the vault.
func DecryptArchive(cfg config.EncryptionConfig, src, dst, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg)
	if err != nil {
		return err
	}
	if !enc.Enabled() {
		return fmt.Errorf("encryption is disabled; archives are pushed as plain tar.gz")
	}
	dc, err := enc.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	return encryption.DecryptFile(dc, src, dst)
}
