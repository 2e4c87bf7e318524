package migrator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PostgresClient implements the Client interface for PostgreSQL. Postgres
// alters tables natively, so rebuilds with an Alter statement skip the
// shadow table entirely.
type PostgresClient struct {
	baseClient
}

// NewPostgresClient creates a new PostgresClient.
func NewPostgresClient(cfg Config) *PostgresClient {
	pgClient := &PostgresClient{
		baseClient: baseClient{
			cfg: cfg,
		},
	}
	pgClient.quotedSchemaTableFn = pgClient.quotedSchemaTable
	pgClient.getColumnsSqlFn = pgClient.getColumnsSql
	pgClient.getCreateTableSqlFn = pgClient.getCreateTableSql
	pgClient.getAddColumnSqlFn = pgClient.getAddColumnSql
	pgClient.placeholderFn = func(n int) string { return fmt.Sprintf("$%d", n) }
	pgClient.runAtFn = func(t time.Time) any { return t }
	return pgClient
}

// quotedSchemaTable returns the schema table name with each part quoted.
func (c *PostgresClient) quotedSchemaTable() string {
	parts := strings.Split(c.cfg.SchemaTable, ".")
	for i, part := range parts {
		parts[i] = fmt.Sprintf(`"%s"`, part)
	}
	return strings.Join(parts, ".")
}

// Prepare sets the search path when CurrentSchema is configured.
func (c *PostgresClient) Prepare(ctx context.Context, q Querier) error {
	if c.cfg.CurrentSchema == "" {
		return nil
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf("SET search_path = %s", c.cfg.CurrentSchema))
	return err
}

// getColumnsSql returns SQL to list columns for the version table in Postgres.
func (c *PostgresClient) getColumnsSql() string {
	var schema, table string
	if strings.Contains(c.cfg.SchemaTable, ".") {
		parts := strings.Split(c.cfg.SchemaTable, ".")
		schema = parts[0]
		table = parts[1]
	} else {
		schema = "public"
		if c.cfg.CurrentSchema != "" {
			schema = c.cfg.CurrentSchema
		}
		table = c.cfg.SchemaTable
	}
	return fmt.Sprintf(`SELECT column_name FROM information_schema.columns WHERE table_schema = '%s' AND table_name = '%s';`, schema, table)
}

func (c *PostgresClient) getCreateTableSql() []string {
	var queries []string
	// If SchemaTable contains a dot, create the schema first.
	if strings.Contains(c.cfg.SchemaTable, ".") {
		parts := strings.Split(c.cfg.SchemaTable, ".")
		queries = append(queries, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s";`, parts[0]))
	}
	queries = append(queries, fmt.Sprintf(`
      CREATE TABLE IF NOT EXISTS %s (
        version BIGINT PRIMARY KEY
      );`, c.quotedSchemaTable()))
	return queries
}

func (c *PostgresClient) getAddColumnSql(name string) string {
	colType := "TEXT"
	if name == "run_at" {
		colType = "TIMESTAMP WITH TIME ZONE"
	}
	return fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s;`, c.quotedSchemaTable(), name, colType)
}

// SupportsAlter is true: Postgres renames columns and swaps constraints in place.
func (c *PostgresClient) SupportsAlter() bool {
	return true
}
