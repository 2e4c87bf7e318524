// Package journal owns the Project Journal store: its schema history and the
// startup call that opens the database file and migrates it.
//
// The history shows every shape of change the migrator handles: plain DDL
// (versions 1, 2, 4, 5, 9), column renames through a table rebuild (3, 6),
// tightening ON DELETE CASCADE to a plain reference (7), and adding a
// self-referencing foreign key to a table other tables point at (8).
package journal
