package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Migrator applies a catalog of forward-only migrations to a database and
// records each one in the schema ledger.
//
// Every call takes a single connection from the pool and holds it until it
// returns: foreign key enforcement in SQLite is per connection, and the
// rebuild path toggles it.
type Migrator struct {
	cfg     Config
	db      *sql.DB
	client  Client
	logger  *zap.Logger
	metrics *metrics
}

// NewMigrator creates a new Migrator with the provided configuration and database connection.
func NewMigrator(cfg Config, db *sql.DB) (*Migrator, error) {
	cfg = cfg.withDefaults()
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Migrator{
		cfg:     cfg,
		db:      db,
		client:  client,
		logger:  cfg.Logger.Named("migrator"),
		metrics: newMetrics(cfg.Registerer),
	}, nil
}

// Apply brings the database up to date with cat and returns the number of
// migrations applied. Zero means the database was already current.
func Apply(ctx context.Context, cfg Config, cat *Catalog, db *sql.DB) (int, error) {
	mg, err := NewMigrator(cfg, db)
	if err != nil {
		return 0, err
	}
	return mg.Apply(ctx, cat)
}

// Apply runs every pending migration in cat and returns how many ran.
func (mg *Migrator) Apply(ctx context.Context, cat *Catalog) (int, error) {
	applied, err := mg.Migrate(ctx, cat, "max")
	return len(applied), err
}

// Migrate applies pending migrations up to target, which is a version number
// or "max" (empty means "max"). It returns the migrations applied, which on
// error are those that committed before the failure.
func (mg *Migrator) Migrate(ctx context.Context, cat *Catalog, target string) ([]Migration, error) {
	if cat == nil {
		return nil, &CatalogError{Reason: "catalog is nil"}
	}
	targetVersion, err := parseTarget(cat, target)
	if err != nil {
		return nil, err
	}

	conn, err := mg.db.Conn(ctx)
	if err != nil {
		return nil, &LedgerError{Op: "connect", Err: err}
	}
	defer conn.Close()

	if err := mg.client.Prepare(ctx, conn); err != nil {
		return nil, &LedgerError{Op: "prepare connection", Err: err}
	}
	if err := mg.client.EnsureTable(ctx, conn); err != nil {
		return nil, &LedgerError{Op: "ensure table", Err: err}
	}
	applied, err := mg.client.AppliedMigrations(ctx, conn)
	if err != nil {
		return nil, &LedgerError{Op: "read", Err: err}
	}
	if err := mg.validateLedger(cat, applied); err != nil {
		return nil, err
	}

	dbVersion := maxApplied(applied)
	if targetVersion < dbVersion {
		return nil, fmt.Errorf("target version %d is below database version %d: down migrations are not supported", targetVersion, dbVersion)
	}

	runID := uuid.NewString()
	log := mg.logger.With(zap.String("run_id", runID))

	runnable := runnableMigrations(cat, applied, targetVersion)
	if len(runnable) == 0 {
		log.Info("schema up to date", zap.Int("version", dbVersion))
		return nil, nil
	}

	var done []Migration
	for _, m := range runnable {
		if m.Version < dbVersion {
			log.Warn("applying migration below database version",
				zap.Int("version", m.Version), zap.Int("database_version", dbVersion))
		}
		log.Info("applying migration", zap.Int("version", m.Version), zap.String("name", m.Name))

		start := time.Now()
		err := mg.runMigration(ctx, conn, m, runID)
		mg.metrics.observe(start, err)
		if err != nil {
			log.Error("migration failed", zap.Int("version", m.Version), zap.String("name", m.Name), zap.Error(err))
			return done, err
		}
		log.Info("migration applied",
			zap.Int("version", m.Version),
			zap.String("name", m.Name),
			zap.Duration("duration", time.Since(start)))
		done = append(done, m)
	}
	return done, nil
}

// parseTarget resolves "max", "" or a version number.
func parseTarget(cat *Catalog, target string) (int, error) {
	cleaned := strings.ToLower(strings.TrimSpace(target))
	if cleaned == "max" || cleaned == "" {
		return cat.Max(), nil
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid target version: %v", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid target version: %d", v)
	}
	return v, nil
}

func maxApplied(applied []AppliedMigration) int {
	v := 0
	for _, a := range applied {
		if a.Version > v {
			v = a.Version
		}
	}
	return v
}

// runnableMigrations returns the catalog entries not in the ledger, up to
// targetVersion, in ascending order.
func runnableMigrations(cat *Catalog, applied []AppliedMigration, targetVersion int) []Migration {
	done := make(map[int]struct{}, len(applied))
	for _, a := range applied {
		done[a.Version] = struct{}{}
	}
	var runnable []Migration
	for _, m := range cat.migrations {
		if m.Version > targetVersion {
			break
		}
		if _, ok := done[m.Version]; ok {
			continue
		}
		runnable = append(runnable, m)
	}
	return runnable
}

// validateLedger checks the ledger against the catalog: every applied
// version must still exist and, unless disabled, its body must be unchanged.
func (mg *Migrator) validateLedger(cat *Catalog, applied []AppliedMigration) error {
	for _, a := range applied {
		if a.Version <= 0 {
			// Baseline row written by older ledgers.
			continue
		}
		m, ok := cat.Get(a.Version)
		if !ok {
			return &CatalogError{Version: a.Version, Reason: fmt.Sprintf("applied to the database (%s) but missing from the catalog", a.Name)}
		}
		if mg.cfg.SkipChecksums || a.Md5 == "" {
			continue
		}
		if a.Md5 != m.Md5 {
			return &ChecksumError{Version: m.Version, Name: m.Name, Want: a.Md5, Got: m.Md5}
		}
	}
	return nil
}

// runMigration applies m and records it in one transaction.
func (mg *Migrator) runMigration(ctx context.Context, conn *sql.Conn, m Migration, runID string) error {
	if needsForeignKeysOff(mg.client, m) {
		return mg.runWithoutForeignKeys(ctx, conn, m, runID)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("begin: %w", err)}
	}
	if err := mg.execBody(ctx, tx, m); err != nil {
		_ = tx.Rollback()
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}
	if err := mg.client.RecordMigration(ctx, tx, m, runID); err != nil {
		_ = tx.Rollback()
		return &LedgerError{Op: "record", Version: m.Version, Name: m.Name, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// runWithoutForeignKeys applies m with foreign key enforcement suspended on
// conn. The pragma cannot change inside a transaction, so it is switched off
// before BEGIN and restored after COMMIT or ROLLBACK. Rows are checked
// against their parents before the commit.
func (mg *Migrator) runWithoutForeignKeys(ctx context.Context, conn *sql.Conn, m Migration, runID string) (err error) {
	enabled, err := mg.client.ForeignKeys(ctx, conn)
	if err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("read foreign_keys: %w", err)}
	}
	if enabled {
		if err := mg.client.SetForeignKeys(ctx, conn, false); err != nil {
			return &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("disable foreign_keys: %w", err)}
		}
		defer func() {
			// The connection goes back to the pool after the run.
			restoreErr := mg.client.SetForeignKeys(context.WithoutCancel(ctx), conn, true)
			if restoreErr != nil && err == nil {
				err = &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("restore foreign_keys: %w", restoreErr)}
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("begin: %w", err)}
	}
	if err := mg.execBody(ctx, tx, m); err != nil {
		_ = tx.Rollback()
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}
	if err := mg.client.ForeignKeyCheck(ctx, tx); err != nil {
		_ = tx.Rollback()
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}
	if err := mg.client.RecordMigration(ctx, tx, m, runID); err != nil {
		_ = tx.Rollback()
		return &LedgerError{Op: "record", Version: m.Version, Name: m.Name, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// execBody executes the verbatim SQL and then each rebuild.
func (mg *Migrator) execBody(ctx context.Context, q Querier, m Migration) error {
	if strings.TrimSpace(m.SQL) != "" {
		if _, err := q.ExecContext(ctx, m.SQL); err != nil {
			return err
		}
	}
	for _, r := range m.Rebuilds {
		for _, stmt := range planRebuild(mg.client, r) {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("rebuild %s: %w", r.Table, err)
			}
		}
	}
	return nil
}

// Applied returns the ledger rows. A database without a ledger has none.
func (mg *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	conn, err := mg.db.Conn(ctx)
	if err != nil {
		return nil, &LedgerError{Op: "connect", Err: err}
	}
	defer conn.Close()

	if err := mg.client.Prepare(ctx, conn); err != nil {
		return nil, &LedgerError{Op: "prepare connection", Err: err}
	}
	initialized, err := mg.client.HasVersionTable(ctx, conn)
	if err != nil {
		return nil, &LedgerError{Op: "inspect", Err: err}
	}
	if !initialized {
		return nil, nil
	}
	applied, err := mg.client.AppliedMigrations(ctx, conn)
	if err != nil {
		return nil, &LedgerError{Op: "read", Err: err}
	}
	return applied, nil
}

// DatabaseVersion returns the highest applied version, or 0 if the ledger
// is empty or missing.
func (mg *Migrator) DatabaseVersion(ctx context.Context) (int, error) {
	applied, err := mg.Applied(ctx)
	if err != nil {
		return 0, err
	}
	return maxApplied(applied), nil
}

// Pending returns the migrations in cat that have not been applied.
func (mg *Migrator) Pending(ctx context.Context, cat *Catalog) ([]Migration, error) {
	applied, err := mg.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return runnableMigrations(cat, applied, cat.Max()), nil
}

// ValidateMigrations verifies that applied migrations have not changed by
// comparing MD5 checksums, without applying anything.
func (mg *Migrator) ValidateMigrations(ctx context.Context, cat *Catalog) error {
	applied, err := mg.Applied(ctx)
	if err != nil {
		return err
	}
	return mg.validateLedger(cat, applied)
}

// DropLedger drops the schema version table. The schema itself is left alone.
func (mg *Migrator) DropLedger(ctx context.Context) error {
	conn, err := mg.db.Conn(ctx)
	if err != nil {
		return &LedgerError{Op: "connect", Err: err}
	}
	defer conn.Close()
	if err := mg.client.Prepare(ctx, conn); err != nil {
		return &LedgerError{Op: "prepare connection", Err: err}
	}
	if err := mg.client.DropTable(ctx, conn); err != nil {
		return &LedgerError{Op: "drop", Err: err}
	}
	return nil
}
