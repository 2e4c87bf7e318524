package journal

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver, pure Go

	"github.com/bcomnes/migrator"
)

// Config locates the journal store.
type Config struct {
	// Path is the database file.
	Path string `env:"JOURNAL_DB" envDefault:"database.db"`

	// Driver is "sqlite3" (cgo, default) or "sqlite" (pure Go).
	Driver string `env:"JOURNAL_DRIVER" envDefault:"sqlite3"`

	// SchemaTable overrides the ledger table name.
	SchemaTable string `env:"JOURNAL_SCHEMA_TABLE" envDefault:"schemaversion"`
}

// ConfigFromEnv loads Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DSN returns a connection string for path with foreign key enforcement
// switched on for every connection the driver opens.
func DSN(driver, path string) (string, error) {
	q := url.Values{}
	switch driver {
	case "sqlite3":
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", "5000")
	case "sqlite":
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", "busy_timeout(5000)")
	default:
		return "", fmt.Errorf("journal store driver %q not supported, use sqlite3 or sqlite", driver)
	}
	// '#' and '?' are URI delimiters and must not end the file name early.
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode(), nil
}

// Open opens the journal store and brings its schema up to date. It is the
// one call the application makes at startup; on error the store must not be
// used and the error names the failing migration version and description.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite3"
	}
	dsn, err := DSN(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal store %s: %w", cfg.Path, err)
	}

	cat, err := Catalog()
	if err != nil {
		db.Close()
		return nil, err
	}
	n, err := migrator.Apply(ctx, migrator.Config{
		Driver:      cfg.Driver,
		SchemaTable: cfg.SchemaTable,
		Logger:      logger,
	}, cat, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal store %s: %w", cfg.Path, err)
	}
	logger.Info("journal store ready",
		zap.String("path", cfg.Path),
		zap.Int("applied", n),
		zap.Int("version", cat.Max()))
	return db, nil
}
