// SPDX-License-Identifier: MIT

// Package migrator evolves an embedded SQLite database across application
// releases with forward-only, versioned migrations. It tracks applied
// versions in a ledger table inside the database itself, applies pending
// migrations once each in ascending order, and knows how to rebuild a table
// when SQLite cannot ALTER it in place.
//
// A thin client layer (SQLite through mattn/go-sqlite3 or modernc.org/sqlite,
// and PostgreSQL through pgx) supplies dialect differences. Companion CLI
// tools live under cmd/.
//
// # Quick start
//
//	import (
//	    "context"
//	    "database/sql"
//
//	    _ "github.com/mattn/go-sqlite3"
//	    "github.com/bcomnes/migrator"
//	)
//
//	func main() {
//	    db, _ := sql.Open("sqlite3", "file:app.db?_foreign_keys=on")
//	    cat, err := migrator.Load(
//	        migrator.Migration{Version: 1, Name: "create_users", SQL: "CREATE TABLE users (id INTEGER PRIMARY KEY)"},
//	        migrator.Migration{Version: 2, Name: "add_email", SQL: "ALTER TABLE users ADD email TEXT"},
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    n, err := migrator.Apply(context.Background(), migrator.Config{Driver: "sqlite3"}, cat, db)
//	}
//
// # Catalogs
//
// A Catalog is an ordered, validated list of migrations. Load builds one
// from migrations defined in code; LoadFiles and LoadFS build one from
// files named version.do[.name].sql:
//
//	001.do.create-users.sql
//	002.do.add-email.sql
//
// Versions must be positive and strictly increasing; gaps are fine,
// duplicates are rejected with a CatalogError before any SQL runs. Only the
// "do" direction exists. File bodies may use the "-- +migrate Up" marker; a
// "-- +migrate Down" section is ignored and "-- +migrate NoForeignKeys"
// runs the file with foreign key enforcement suspended.
//
// A published migration is history and must not be edited. The ledger keeps
// an MD5 of every applied body and the runner fails with a ChecksumError
// when a body changes (see Config.SkipChecksums).
//
// # Rebuilding tables
//
// SQLite cannot rename or drop a referenced column or change a foreign key
// in place. A Rebuild describes the workaround: create a shadow table with
// the new shape, copy rows across (Copy keeps a column, Rename moves it to a
// new name, omitted columns are dropped), drop the original and rename the
// shadow into its place:
//
//	migrator.Migration{
//	    Version: 3,
//	    Name:    "rename_date_created",
//	    Rebuilds: []migrator.Rebuild{{
//	        Table:      "entries",
//	        Definition: "id integer primary key, date_created text not null",
//	        Columns:    []migrator.ColumnMap{migrator.Copy("id"), migrator.Rename("date", "date_created")},
//	        Alter:      "ALTER TABLE entries RENAME COLUMN date TO date_created",
//	    }},
//	}
//
// Migrations with rebuilds run with PRAGMA foreign_keys switched off for the
// connection, inside their own transaction, followed by PRAGMA
// foreign_key_check before commit; enforcement is switched back on
// afterwards. Engines that alter tables natively run Alter instead.
//
// # Errors
//
// CatalogError, MigrationError, LedgerError and ChecksumError are all fatal.
// A failing migration is rolled back, nothing after it runs, and the error
// names the version and description.
//
// Generated documentation; update whenever public API or CLI flags change.
package migrator
