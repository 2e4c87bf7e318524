package migrator

import (
	"errors"
	"fmt"
)

// ErrForeignKeyViolation is wrapped by a MigrationError when the foreign key
// check that follows a rebuild reports orphaned rows.
var ErrForeignKeyViolation = errors.New("foreign key check failed")

// CatalogError reports a malformed migration catalog. It is returned before
// any SQL is executed.
type CatalogError struct {
	// Version is the offending migration version, or 0 when the problem is not
	// tied to a single migration.
	Version int
	Reason  string
}

func (e *CatalogError) Error() string {
	if e.Version == 0 {
		return "invalid migration catalog: " + e.Reason
	}
	return fmt.Sprintf("invalid migration catalog: version %d: %s", e.Version, e.Reason)
}

// MigrationError reports a statement failure while applying one migration.
// Nothing is recorded in the ledger for Version or any later migration.
type MigrationError struct {
	Version int
	Name    string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %v", e.Version, e.Name, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// LedgerError reports that the schema version table could not be created,
// read or written.
//
// Version and Name are set when recording a migration failed; the migration
// was rolled back.
type LedgerError struct {
	Op      string
	Version int
	Name    string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Version != 0 {
		return fmt.Sprintf("schema ledger %s failed for migration %d (%s): %v", e.Op, e.Version, e.Name, e.Err)
	}
	return fmt.Sprintf("schema ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// ChecksumError reports that the body of an already applied migration no
// longer matches what the ledger recorded when it ran.
type ChecksumError struct {
	Version int
	Name    string
	Want    string
	Got     string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("MD5 checksum failed for migration [%d] %s: ledger has %s, catalog has %s",
		e.Version, e.Name, e.Want, e.Got)
}
