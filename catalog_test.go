package migrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidCatalog(t *testing.T) {
	cat, err := Load(
		Migration{Version: 1, Name: "one", SQL: "CREATE TABLE a (id INTEGER)"},
		Migration{Version: 2, Name: "two", SQL: "CREATE TABLE b (id INTEGER)"},
		Migration{Version: 10, Name: "ten", SQL: "CREATE TABLE c (id INTEGER)"},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, 10, cat.Max())

	m, ok := cat.Get(2)
	require.True(t, ok)
	assert.Equal(t, "two", m.Name)
	assert.Equal(t, Up, m.Direction)
	assert.Len(t, m.Md5, 32)

	_, ok = cat.Get(3)
	assert.False(t, ok)
}

func TestLoadRejectsDuplicateVersion(t *testing.T) {
	_, err := Load(
		Migration{Version: 1, SQL: "SELECT 1"},
		Migration{Version: 3, SQL: "SELECT 1"},
		Migration{Version: 3, SQL: "SELECT 2"},
	)
	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr), "expected CatalogError, got %v", err)
	assert.Equal(t, 3, catErr.Version)
	assert.Contains(t, catErr.Error(), "duplicate")
}

func TestLoadRejectsMalformedCatalogs(t *testing.T) {
	cases := map[string][]Migration{
		"out of order": {
			{Version: 2, SQL: "SELECT 1"},
			{Version: 1, SQL: "SELECT 1"},
		},
		"zero version": {
			{Version: 0, SQL: "SELECT 1"},
		},
		"negative version": {
			{Version: -4, SQL: "SELECT 1"},
		},
		"down direction": {
			{Version: 1, Direction: "undo", SQL: "SELECT 1"},
		},
		"empty body": {
			{Version: 1, SQL: "  \n"},
		},
		"rebuild without columns": {
			{Version: 1, Rebuilds: []Rebuild{{Table: "t", Definition: "id integer"}}},
		},
		"rebuild shadowing itself": {
			{Version: 1, Rebuilds: []Rebuild{{Table: "t", Shadow: "T", Definition: "id integer", Columns: []ColumnMap{Copy("id")}}}},
		},
		"rebuild writing a column twice": {
			{Version: 1, Rebuilds: []Rebuild{{Table: "t", Definition: "id integer", Columns: []ColumnMap{Copy("id"), Rename("old_id", "id")}}}},
		},
	}
	for name, migs := range cases {
		t.Run(name, func(t *testing.T) {
			cat, err := Load(migs...)
			assert.Nil(t, cat)
			var catErr *CatalogError
			assert.True(t, errors.As(err, &catErr), "expected CatalogError, got %v", err)
		})
	}
}

func TestLoadCopiesInput(t *testing.T) {
	migs := []Migration{{Version: 1, SQL: "SELECT 1"}}
	cat, err := Load(migs...)
	require.NoError(t, err)

	migs[0].SQL = "SELECT 2"
	got := cat.Migrations()
	assert.Equal(t, "SELECT 1", got[0].SQL)

	got[0].SQL = "SELECT 3"
	again, _ := cat.Get(1)
	assert.Equal(t, "SELECT 1", again.SQL)
}

func TestLoadCopiesRebuilds(t *testing.T) {
	cols := []ColumnMap{Copy("id"), Rename("date", "date_created")}
	indexes := []string{"CREATE INDEX entries_date ON entries (date_created);"}
	migs := []Migration{{Version: 4, Name: "rename_date", Rebuilds: []Rebuild{{
		Table:      "entries",
		Definition: "id integer primary key, date_created text",
		Columns:    cols,
		Indexes:    indexes,
	}}}}
	cat, err := Load(migs...)
	require.NoError(t, err)
	before, _ := cat.Get(4)

	cols[1] = Rename("created", "date_created")
	indexes[0] = "CREATE INDEX other ON entries (id);"

	got, ok := cat.Get(4)
	require.True(t, ok)
	assert.Equal(t, Rename("date", "date_created"), got.Rebuilds[0].Columns[1])
	assert.Equal(t, "CREATE INDEX entries_date ON entries (date_created);", got.Rebuilds[0].Indexes[0])
	assert.Equal(t, before.Md5, got.Md5)

	// Accessors hand out copies too.
	got.Rebuilds[0].Columns[0] = Copy("nope")
	again, _ := cat.Get(4)
	assert.Equal(t, Copy("id"), again.Rebuilds[0].Columns[0])
	listed := cat.Migrations()
	listed[0].Rebuilds[0].Indexes[0] = "DROP TABLE entries;"
	again, _ = cat.Get(4)
	assert.Equal(t, "CREATE INDEX entries_date ON entries (date_created);", again.Rebuilds[0].Indexes[0])
}

func TestEmptyCatalog(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Len())
	assert.Equal(t, 0, cat.Max())
}
