package migrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config holds settings for migrations.
type Config struct {
	// Driver is the database driver: "sqlite3" (mattn), "sqlite" (modernc) or "pg".
	Driver string `json:"driver" yaml:"driver"`

	// SchemaTable is the name of the migration ledger table.
	SchemaTable string `json:"schemaTable" yaml:"schemaTable"`

	// MigrationPattern is the glob pattern for migration files (e.g. "./migrations/*.sql").
	MigrationPattern string `json:"migrationPattern" yaml:"migrationPattern"`

	// Newline is the line-ending style applied before checksumming ("LF", "CR", or "CRLF").
	Newline string `json:"newline" yaml:"newline"`

	// CurrentSchema is used for PostgreSQL if SchemaTable doesn’t include a dot.
	CurrentSchema string `json:"currentSchema" yaml:"currentSchema"`

	// SkipChecksums disables the check that applied migrations are unchanged.
	SkipChecksums bool `json:"skipChecksums" yaml:"skipChecksums"`

	// Logger receives progress logs. Defaults to a no-op logger.
	Logger *zap.Logger `json:"-" yaml:"-"`

	// Registerer, when set, registers the migration metrics.
	Registerer prometheus.Registerer `json:"-" yaml:"-"`
}

// DefaultConfig provides default values for configuration.
var DefaultConfig = Config{
	Driver:           "sqlite3",
	SchemaTable:      "schemaversion",
	MigrationPattern: "migrations/*.sql",
}

// withDefaults merges DefaultConfig into unset fields.
func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DefaultConfig.Driver
	}
	if c.SchemaTable == "" {
		c.SchemaTable = DefaultConfig.SchemaTable
	}
	if c.MigrationPattern == "" {
		c.MigrationPattern = DefaultConfig.MigrationPattern
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
