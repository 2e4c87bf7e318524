package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the clients use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AppliedMigration is one row of the schema version table.
type AppliedMigration struct {
	Version int
	Name    string
	Md5     string
	RunAt   string
	RunID   string
}

// NewClient creates a new Client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite3", "sqlite":
		return NewSqlite3Client(cfg), nil
	case "pg", "pgx", "postgres":
		return NewPostgresClient(cfg), nil
	default:
		return nil, fmt.Errorf("db driver '%s' not supported. Must be one of: sqlite3, sqlite or pg", cfg.Driver)
	}
}

// Client hides the SQL dialect differences between engines: the ledger
// table, foreign key enforcement and ALTER TABLE support.
type Client interface {
	// Prepare readies a connection before any other call, e.g. sets the
	// search path.
	Prepare(ctx context.Context, q Querier) error
	HasVersionTable(ctx context.Context, q Querier) (bool, error)
	EnsureTable(ctx context.Context, q Querier) error
	AppliedMigrations(ctx context.Context, q Querier) ([]AppliedMigration, error)
	RecordMigration(ctx context.Context, q Querier, m Migration, runID string) error
	DropTable(ctx context.Context, q Querier) error

	// ForeignKeys reports whether foreign key enforcement is on for the
	// connection and can be switched off.
	ForeignKeys(ctx context.Context, q Querier) (bool, error)
	SetForeignKeys(ctx context.Context, q Querier, on bool) error
	// ForeignKeyCheck returns an error wrapping ErrForeignKeyViolation when
	// any row references a missing parent.
	ForeignKeyCheck(ctx context.Context, q Querier) error

	// SupportsAlter reports whether the engine alters tables natively, in
	// which case Rebuild.Alter replaces the rebuild.
	SupportsAlter() bool
}

// baseClient provides the common implementation. Dialects fill in the
// function hooks.
type baseClient struct {
	cfg Config

	quotedSchemaTableFn func() string
	getColumnsSqlFn     func() string
	getCreateTableSqlFn func() []string
	getAddColumnSqlFn   func(name string) string
	placeholderFn       func(n int) string
	runAtFn             func(t time.Time) any
}

func (c *baseClient) quotedSchemaTable() string {
	if c.quotedSchemaTableFn != nil {
		return c.quotedSchemaTableFn()
	}
	return c.cfg.SchemaTable
}

func (c *baseClient) placeholder(n int) string {
	if c.placeholderFn != nil {
		return c.placeholderFn(n)
	}
	return "?"
}

// Prepare is a no-op by default.
func (c *baseClient) Prepare(context.Context, Querier) error {
	return nil
}

// columns lists the column names of the version table. An empty result
// means the table does not exist.
func (c *baseClient) columns(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, c.getColumnsSqlFn())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// HasVersionTable checks for the existence of the version table by querying its columns.
func (c *baseClient) HasVersionTable(ctx context.Context, q Querier) (bool, error) {
	columns, err := c.columns(ctx, q)
	if err != nil {
		return false, err
	}
	return len(columns) > 0, nil
}

// Helper function to check for a column name (case insensitive).
func hasColumn(columns []string, name string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

// EnsureTable creates the version table on first use and adds any columns an
// older ledger is missing. Running it again is a no-op.
func (c *baseClient) EnsureTable(ctx context.Context, q Querier) error {
	columns, err := c.columns(ctx, q)
	if err != nil {
		return err
	}

	var queries []string
	if len(columns) == 0 {
		queries = append(queries, c.getCreateTableSqlFn()...)
		columns = []string{"version"}
	}
	for _, name := range []string{"name", "md5", "run_at", "run_id"} {
		if !hasColumn(columns, name) {
			queries = append(queries, c.getAddColumnSqlFn(name))
		}
	}

	for _, query := range queries {
		if _, err := q.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// AppliedMigrations returns every ledger row ordered by version.
func (c *baseClient) AppliedMigrations(ctx context.Context, q Querier) ([]AppliedMigration, error) {
	query := fmt.Sprintf(`
      SELECT version, name, md5, run_at, run_id
      FROM %s
      ORDER BY version;`, c.quotedSchemaTable())
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			a                       AppliedMigration
			name, md5, runAt, runID sql.NullString
		)
		if err := rows.Scan(&a.Version, &name, &md5, &runAt, &runID); err != nil {
			return nil, err
		}
		a.Name, a.Md5, a.RunAt, a.RunID = name.String, md5.String, runAt.String, runID.String
		applied = append(applied, a)
	}
	return applied, rows.Err()
}

// RecordMigration inserts the ledger row for m.
func (c *baseClient) RecordMigration(ctx context.Context, q Querier, m Migration, runID string) error {
	query := fmt.Sprintf(`
      INSERT INTO %s (version, name, md5, run_at, run_id)
      VALUES (%s, %s, %s, %s, %s);`, c.quotedSchemaTable(),
		c.placeholder(1), c.placeholder(2), c.placeholder(3), c.placeholder(4), c.placeholder(5))
	var runAt any = time.Now().UTC().Format("2006-01-02 15:04:05")
	if c.runAtFn != nil {
		runAt = c.runAtFn(time.Now().UTC())
	}
	_, err := q.ExecContext(ctx, query, m.Version, m.Name, m.Md5, runAt, runID)
	return err
}

// DropTable drops the version table.
func (c *baseClient) DropTable(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s;", c.quotedSchemaTable()))
	return err
}

// ForeignKeys reports false by default: enforcement cannot be switched off.
func (c *baseClient) ForeignKeys(context.Context, Querier) (bool, error) {
	return false, nil
}

// SetForeignKeys is a no-op by default.
func (c *baseClient) SetForeignKeys(context.Context, Querier, bool) error {
	return nil
}

// ForeignKeyCheck is a no-op by default.
func (c *baseClient) ForeignKeyCheck(context.Context, Querier) error {
	return nil
}

// SupportsAlter is false by default.
func (c *baseClient) SupportsAlter() bool {
	return false
}
