// SPDX-License-Identifier: MIT

// Package main provides migrator, the command-line interface for the
// migrator library. It drives SQLite through mattn/go-sqlite3 or
// modernc.org/sqlite and PostgreSQL through pgx.
//
// # Install
//
//	go install github.com/bcomnes/migrator/cmd/migrator@latest
//
// # Synopsis
//
//	migrator [options] [command] [arguments]
//
// # Commands
//
//	migrate [target]    Apply pending migrations up to *target* (default "max").
//	list                List available migrations and mark the applied ones.
//	validate            Check applied migrations against their recorded MD5.
//	new    <desc>       Scaffold the next forward-only migration labelled *desc*.
//	drop-schema         Delete the migration ledger table.
//
// There is no down command. A target below the database version is an error.
//
// # Global flags
//
//	-conn string               Connection string (a file path for SQLite). Overrides
//	                           $SQLITE_URL or $DATABASE_URL and the "conn" field in -config.
//	-config string             Optional JSON or YAML file that mirrors migrator.Config.
//	-driver string             sqlite3, sqlite or pg (default "sqlite3").
//	-migration-pattern string  Glob for locating *.sql migrations (default "migrations/*.sql").
//	-schema-table string       Ledger table (default "schemaversion").
//	-newline string            LF, CR or CRLF, applied before checksumming.
//	-skip-checksums            Do not fail when an applied migration was edited.
//	-mode string               Numbering mode for *new*: "int" or "timestamp" (default "int").
//	-verbose                   Log every migration step.
//	-help                      Show built-in help.
//	-version                   Print the migrator version.
//
// Flags must come before the command.
//
// *Precedence:* flags ➜ environment ➜ config file ➜ defaults. For the
// connection: -conn ➜ $SQLITE_URL (or $DATABASE_URL for pg) ➜ "conn" in -config.
//
// # Environment
//
//	SQLITE_URL                   SQLite connection string.
//	DATABASE_URL                 PostgreSQL connection string.
//	MIGRATOR_DRIVER              Overrides the driver from the config file.
//	MIGRATOR_SCHEMA_TABLE        Overrides the ledger table.
//	MIGRATOR_MIGRATION_PATTERN   Overrides the migration glob.
//
// # Examples
//
//	# Apply every migration in ./sql
//	migrator -conn ./data/dev.sqlite -migration-pattern "sql/*.sql" migrate
//
//	# Apply up to version 4 only
//	migrator -conn ./data/dev.sqlite migrate 4
//
//	# Create a timestamp-based migration called create-users
//	migrator -mode timestamp new "create-users"
//
// # Configuration file
//
//	driver: sqlite3
//	conn: ./data/dev.sqlite
//	schemaTable: schema_version
//	migrationPattern: sql/*.sql
//
// # Exit status
//
// The program exits non-zero on any error. Each command runs with a context that
// times out after ten minutes.
//
// Generated documentation; update when flags or behaviour change.
package main
