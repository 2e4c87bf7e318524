package migrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var renameDate = Rebuild{
	Table:      "entries",
	Definition: "id integer primary key,\n    date_created text not null",
	Columns:    []ColumnMap{Copy("id"), Rename("date", "date_created")},
	Indexes:    []string{"CREATE INDEX entries_date_created ON entries (date_created);"},
	Alter:      "ALTER TABLE entries RENAME COLUMN date TO date_created;",
}

func TestRebuildStatements(t *testing.T) {
	assert.Equal(t, []string{
		"CREATE TABLE entries_rebuild (\nid integer primary key,\n    date_created text not null\n);",
		"INSERT INTO entries_rebuild (id, date_created)\nSELECT id, date\nFROM entries;",
		"DROP TABLE entries;",
		"ALTER TABLE entries_rebuild RENAME TO entries;",
		"CREATE INDEX entries_date_created ON entries (date_created);",
	}, renameDate.Statements())
}

func TestRebuildCustomShadow(t *testing.T) {
	r := renameDate
	r.Shadow = "entries_dg_tmp"
	stmts := r.Statements()
	assert.Contains(t, stmts[0], "CREATE TABLE entries_dg_tmp (")
	assert.Equal(t, "ALTER TABLE entries_dg_tmp RENAME TO entries;", stmts[3])
}

func TestPlanRebuildUsesNativeAlterWhenSupported(t *testing.T) {
	sqlite := NewSqlite3Client(Config{SchemaTable: "schemaversion"})
	pg := NewPostgresClient(Config{SchemaTable: "schemaversion"})

	assert.Equal(t, renameDate.Statements(), planRebuild(sqlite, renameDate))
	assert.Equal(t, []string{renameDate.Alter}, planRebuild(pg, renameDate))

	noAlter := renameDate
	noAlter.Alter = ""
	assert.Equal(t, noAlter.Statements(), planRebuild(pg, noAlter))
}

func TestNeedsForeignKeysOff(t *testing.T) {
	sqlite := NewSqlite3Client(Config{})
	pg := NewPostgresClient(Config{})

	plain := Migration{SQL: "CREATE TABLE t (id INTEGER)"}
	rebuild := Migration{Rebuilds: []Rebuild{renameDate}}
	flagged := Migration{SQL: "DELETE FROM t", ForeignKeysOff: true}

	assert.False(t, needsForeignKeysOff(sqlite, plain))
	assert.True(t, needsForeignKeysOff(sqlite, rebuild))
	assert.True(t, needsForeignKeysOff(sqlite, flagged))
	assert.False(t, needsForeignKeysOff(pg, rebuild))
}
