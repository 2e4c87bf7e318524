package migrator

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	upMarker        = "-- +migrate Up"
	downMarker      = "-- +migrate Down"
	noForeignKeys   = "-- +migrate NoForeignKeys"
	migrationSuffix = ".sql"
)

// LoadFiles scans for migration files matching pattern and loads them into a
// catalog. Files are named version.do[.name].sql, for example
// 001.do.create-users.sql. newline, when set, normalises line endings before
// checksumming ("LF", "CR" or "CRLF").
func LoadFiles(pattern, newline string) (*Catalog, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var migs []Migration
	for _, file := range files {
		if filepath.Ext(file) != migrationSuffix {
			continue
		}
		m, ok, err := parseFilename(filepath.Base(file))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		m.Filename = file
		if err := m.setContent(string(data), newline); err != nil {
			return nil, err
		}
		migs = append(migs, m)
	}
	return loadSorted(migs)
}

// LoadFS loads a catalog from the files in fsys matching pattern, for example
// an embed.FS with pattern "migrations/*.sql".
func LoadFS(fsys fs.FS, pattern, newline string) (*Catalog, error) {
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	var migs []Migration
	for _, file := range files {
		if path.Ext(file) != migrationSuffix {
			continue
		}
		m, ok, err := parseFilename(path.Base(file))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		m.Filename = file
		if err := m.setContent(string(data), newline); err != nil {
			return nil, err
		}
		migs = append(migs, m)
	}
	return loadSorted(migs)
}

// loadSorted orders file migrations by version before validating them, so
// lexical file order does not matter but duplicate versions still fail.
func loadSorted(migs []Migration) (*Catalog, error) {
	sortMigrationsAsc(migs)
	for i := 1; i < len(migs); i++ {
		if migs[i].Version == migs[i-1].Version {
			return nil, &CatalogError{
				Version: migs[i].Version,
				Reason:  fmt.Sprintf("duplicate migration files %s and %s", migs[i-1].Filename, migs[i].Filename),
			}
		}
	}
	return Load(migs...)
}

// parseFilename splits version.action[.name].sql. Files that do not follow
// the pattern are skipped. Undo files are rejected.
func parseFilename(base string) (Migration, bool, error) {
	parts := strings.Split(strings.TrimSuffix(base, migrationSuffix), ".")
	if len(parts) < 2 {
		return Migration{}, false, nil
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return Migration{}, false, nil
	}
	if parts[1] != string(Up) {
		return Migration{}, false, &CatalogError{
			Version: version,
			Reason:  fmt.Sprintf("%s: action %q is not supported, migrations are forward-only", base, parts[1]),
		}
	}
	name := ""
	if len(parts) > 2 {
		name = strings.Join(parts[2:], ".")
	}
	return Migration{Version: version, Direction: Up, Name: name}, true, nil
}

// setContent fills in the SQL, directives and checksum from a file body.
func (m *Migration) setContent(content, newline string) error {
	sum, err := checksum(content, newline)
	if err != nil {
		return err
	}
	m.Md5 = sum
	m.SQL = ExtractUpMigration(content)
	m.ForeignKeysOff = strings.Contains(content, noForeignKeys)
	return nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section. Content
// without markers is returned as is; a -- +migrate Down section is ignored.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		if downIdx := strings.Index(content, downMarker); downIdx != -1 {
			return content[:downIdx]
		}
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}
