package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Sqlite3Client implements the Client interface for SQLite. It serves both
// the mattn (sqlite3) and modernc (sqlite) drivers.
type Sqlite3Client struct {
	baseClient
}

// NewSqlite3Client creates a new Sqlite3Client.
func NewSqlite3Client(cfg Config) *Sqlite3Client {
	sqliteClient := &Sqlite3Client{
		baseClient: baseClient{
			cfg: cfg,
		},
	}
	// Set function pointers.
	sqliteClient.getColumnsSqlFn = sqliteClient.getColumnsSql
	sqliteClient.getCreateTableSqlFn = sqliteClient.getCreateTableSql
	sqliteClient.getAddColumnSqlFn = sqliteClient.getAddColumnSql
	return sqliteClient
}

func (c *Sqlite3Client) getColumnsSql() string {
	return fmt.Sprintf(`
      SELECT name AS column_name
      FROM pragma_table_info('%s');
    `, c.cfg.SchemaTable)
}

func (c *Sqlite3Client) getCreateTableSql() []string {
	return []string{fmt.Sprintf(`
      CREATE TABLE IF NOT EXISTS %s (
        version INTEGER PRIMARY KEY
      );`, c.quotedSchemaTable())}
}

// getAddColumnSql returns SQL to add a ledger column. SQLite has no
// dedicated TIMESTAMP type so run_at is TEXT.
func (c *Sqlite3Client) getAddColumnSql(name string) string {
	return fmt.Sprintf(`
      ALTER TABLE %s
      ADD COLUMN %s TEXT;
    `, c.quotedSchemaTable(), name)
}

// ForeignKeys reads PRAGMA foreign_keys for the connection.
func (c *Sqlite3Client) ForeignKeys(ctx context.Context, q Querier) (bool, error) {
	var on int
	if err := q.QueryRowContext(ctx, "PRAGMA foreign_keys;").Scan(&on); err != nil {
		return false, err
	}
	return on == 1, nil
}

// SetForeignKeys toggles enforcement. SQLite ignores the pragma inside a
// transaction, so q must not be a *sql.Tx.
func (c *Sqlite3Client) SetForeignKeys(ctx context.Context, q Querier, on bool) error {
	if _, ok := q.(*sql.Tx); ok {
		return fmt.Errorf("foreign_keys cannot be changed inside a transaction")
	}
	value := "OFF"
	if on {
		value = "ON"
	}
	_, err := q.ExecContext(ctx, "PRAGMA foreign_keys = "+value+";")
	return err
}

// ForeignKeyCheck runs PRAGMA foreign_key_check over the whole schema.
func (c *Sqlite3Client) ForeignKeyCheck(ctx context.Context, q Querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check;")
	if err != nil {
		return err
	}
	defer rows.Close()

	var problems []string
	count := 0
	for rows.Next() {
		var (
			table, parent sql.NullString
			rowid, fkid   sql.NullInt64
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}
		count++
		if len(problems) < 5 {
			problems = append(problems, fmt.Sprintf("%s row %d references missing %s", table.String, rowid.Int64, parent.String))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d orphaned rows (%s)", ErrForeignKeyViolation, count, strings.Join(problems, "; "))
}
