package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/bcomnes/migrator"
)

// cliConfig is the migrator configuration plus the connection string.
type cliConfig struct {
	migrator.Config `yaml:",inline"`

	Conn string `json:"conn" yaml:"conn"`
}

// envConfig holds the environment overrides.
type envConfig struct {
	SqliteURL        string `env:"SQLITE_URL"`
	DatabaseURL      string `env:"DATABASE_URL"`
	Driver           string `env:"MIGRATOR_DRIVER"`
	SchemaTable      string `env:"MIGRATOR_SCHEMA_TABLE"`
	MigrationPattern string `env:"MIGRATOR_MIGRATION_PATTERN"`
}

// flagValues are the parsed command-line flags and which of them were set
// explicitly.
type flagValues struct {
	conn             string
	configPath       string
	driver           string
	migrationPattern string
	schemaTable      string
	newline          string
	skipChecksums    bool
	set              map[string]bool
}

// resolveConfig merges defaults, the config file, the environment and the
// flags, in increasing order of precedence.
func resolveConfig(fv flagValues) (cliConfig, error) {
	cfg := cliConfig{Config: migrator.Config{
		Driver:           fv.driver,
		SchemaTable:      fv.schemaTable,
		MigrationPattern: fv.migrationPattern,
		Newline:          fv.newline,
		SkipChecksums:    fv.skipChecksums,
	}}

	if fv.configPath != "" {
		if err := loadConfig(fv.configPath, &cfg); err != nil {
			return cliConfig{}, fmt.Errorf("loading config file: %w", err)
		}
	}

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return cliConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if ec.Driver != "" {
		cfg.Driver = ec.Driver
	}
	if ec.SchemaTable != "" {
		cfg.SchemaTable = ec.SchemaTable
	}
	if ec.MigrationPattern != "" {
		cfg.MigrationPattern = ec.MigrationPattern
	}

	if fv.set["driver"] {
		cfg.Driver = fv.driver
	}
	if fv.set["schema-table"] {
		cfg.SchemaTable = fv.schemaTable
	}
	if fv.set["migration-pattern"] {
		cfg.MigrationPattern = fv.migrationPattern
	}
	if fv.set["newline"] {
		cfg.Newline = fv.newline
	}
	if fv.set["skip-checksums"] {
		cfg.SkipChecksums = fv.skipChecksums
	}

	// Precedence: -conn flag ➜ env ➜ "conn" in -config.
	envConn := ec.SqliteURL
	if isPostgres(cfg.Driver) {
		envConn = ec.DatabaseURL
	}
	switch {
	case fv.conn != "":
		cfg.Conn = fv.conn
	case envConn != "":
		cfg.Conn = envConn
	}
	return cfg, nil
}

// loadConfig loads a JSON or YAML configuration file into cfg, chosen by
// file extension.
func loadConfig(path string, cfg *cliConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.NewDecoder(f).Decode(cfg)
	default:
		return json.NewDecoder(f).Decode(cfg)
	}
}

func isPostgres(driver string) bool {
	switch strings.ToLower(driver) {
	case "pg", "pgx", "postgres":
		return true
	}
	return false
}

// sqlDriverName maps a migrator driver to the database/sql driver name.
func sqlDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite3":
		return "sqlite3", nil
	case "sqlite":
		return "sqlite", nil
	case "pg", "pgx", "postgres":
		return "pgx", nil
	default:
		return "", fmt.Errorf("db driver '%s' not supported. Must be one of: sqlite3, sqlite or pg", driver)
	}
}
