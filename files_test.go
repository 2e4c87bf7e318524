package migrator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles(t *testing.T) {
	cat, err := LoadFiles("testdata/migrations/*.sql", "")
	require.NoError(t, err)

	migs := cat.Migrations()
	require.Len(t, migs, 3)
	assert.Equal(t, []int{1, 2, 4}, []int{migs[0].Version, migs[1].Version, migs[2].Version})
	assert.Equal(t, "create-projects", migs[0].Name)
	assert.True(t, strings.HasSuffix(migs[0].Filename, "001.do.create-projects.sql"))

	// The Down section never runs.
	assert.NotContains(t, migs[1].SQL, "DROP TABLE")
	assert.False(t, migs[1].ForeignKeysOff)
	assert.True(t, migs[2].ForeignKeysOff)

	data, err := os.ReadFile(migs[0].Filename)
	require.NoError(t, err)
	sum, err := checksum(string(data), "")
	require.NoError(t, err)
	assert.Equal(t, sum, migs[0].Md5)
}

func TestLoadFilesSortsByVersion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	// Lexical order puts 10 before 9.
	write("10.do.later.sql", "CREATE TABLE later (id INTEGER);")
	write("9.do.earlier.sql", "CREATE TABLE earlier (id INTEGER);")
	write("notes.txt", "ignored")
	write("README.sql", "ignored, no version")

	cat, err := LoadFiles(filepath.Join(dir, "*"), "")
	require.NoError(t, err)
	migs := cat.Migrations()
	require.Len(t, migs, 2)
	assert.Equal(t, 9, migs[0].Version)
	assert.Equal(t, 10, migs[1].Version)
}

func TestLoadFilesRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "003.do.a.sql"), []byte("SELECT 1;"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.do.b.sql"), []byte("SELECT 2;"), 0644))

	_, err := LoadFiles(filepath.Join(dir, "*.sql"), "")
	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr), "expected CatalogError, got %v", err)
	assert.Equal(t, 3, catErr.Version)
}

func TestLoadFSRejectsUndoFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/001.do.create.sql":   {Data: []byte("CREATE TABLE items (id INTEGER);")},
		"migrations/001.undo.create.sql": {Data: []byte("DROP TABLE items;")},
	}
	_, err := LoadFS(fsys, "migrations/*.sql", "")
	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr), "expected CatalogError, got %v", err)
	assert.Contains(t, catErr.Reason, "forward-only")
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/001.do.create.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items (id INTEGER);\n-- +migrate Down\nDROP TABLE items;")},
		"migrations/002.do.index.sql":  {Data: []byte("CREATE INDEX items_id ON items (id);")},
	}
	cat, err := LoadFS(fsys, "migrations/*.sql", "LF")
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	m, ok := cat.Get(1)
	require.True(t, ok)
	assert.Equal(t, "migrations/001.do.create.sql", m.Filename)
	assert.Equal(t, "CREATE TABLE items (id INTEGER);", strings.TrimSpace(m.SQL))
}

func TestExtractUpMigration(t *testing.T) {
	assert.Equal(t, "SELECT 1;", ExtractUpMigration("SELECT 1;"))
	assert.Equal(t, "\nSELECT 1;\n", ExtractUpMigration("-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;"))
	assert.Equal(t, "SELECT 1;\n", ExtractUpMigration("SELECT 1;\n-- +migrate Down\nSELECT 2;"))
}
