package migrator

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Direction is the direction a migration moves the schema. Only Up exists:
// migrations are forward-only.
type Direction string

// Up is the only supported direction. Its value matches the "do" action used
// in migration file names.
const Up Direction = "do"

// Migration describes a single versioned schema change.
type Migration struct {
	// Version of the migration. Positive, unique and strictly increasing
	// within a catalog.
	Version int

	// Direction is always Up. An empty value is treated as Up.
	Direction Direction

	// Name is a short human-readable description, used in diagnostics.
	Name string

	// SQL holds one or more statements executed verbatim.
	SQL string

	// Rebuilds are table rebuilds executed after SQL, in order.
	Rebuilds []Rebuild

	// ForeignKeysOff runs the migration with foreign key enforcement
	// suspended, followed by a foreign key check before commit.
	ForeignKeysOff bool

	// Filename is the path to the migration file, empty for migrations
	// defined in code.
	Filename string

	// Md5 is the checksum of the migration body. It is filled in by the
	// catalog loaders.
	Md5 string
}

// Clone returns a copy of m that shares no slices with it.
func (m Migration) Clone() Migration {
	if m.Rebuilds == nil {
		return m
	}
	rebuilds := make([]Rebuild, len(m.Rebuilds))
	for i, r := range m.Rebuilds {
		r.Columns = append([]ColumnMap(nil), r.Columns...)
		r.Indexes = append([]string(nil), r.Indexes...)
		rebuilds[i] = r
	}
	m.Rebuilds = rebuilds
	return m
}

// fingerprint returns the text a migration's checksum is computed over.
func (m *Migration) fingerprint() string {
	if len(m.Rebuilds) == 0 && !m.ForeignKeysOff {
		return m.SQL
	}
	var b strings.Builder
	b.WriteString(m.SQL)
	if m.ForeignKeysOff {
		b.WriteString("\n-- foreign_keys off")
	}
	for _, r := range m.Rebuilds {
		fmt.Fprintf(&b, "\n-- rebuild %s as %s\n%s\n", r.Table, r.shadowName(), r.Definition)
		for _, c := range r.Columns {
			fmt.Fprintf(&b, "%s <- %s\n", c.To, c.From)
		}
		for _, idx := range r.Indexes {
			b.WriteString(idx)
			b.WriteString("\n")
		}
		if r.Alter != "" {
			b.WriteString("-- alter\n")
			b.WriteString(r.Alter)
		}
	}
	return b.String()
}

// sortMigrationsAsc sorts migrations in ascending order based on version.
func sortMigrationsAsc(migs []Migration) {
	sort.SliceStable(migs, func(i, j int) bool {
		return migs[i].Version < migs[j].Version
	})
}

var lineEndings = regexp.MustCompile(`\r\n|\r|\n`)

// convertLineEnding converts all newline variations in content to the target style.
func convertLineEnding(content, lineEnding string) (string, error) {
	var target string
	switch lineEnding {
	case "LF":
		target = "\n"
	case "CR":
		target = "\r"
	case "CRLF":
		target = "\r\n"
	default:
		return "", fmt.Errorf("newline must be one of: LF, CR, CRLF")
	}
	return lineEndings.ReplaceAllString(content, target), nil
}

// checksum computes the MD5 checksum of the content after converting line endings if set.
func checksum(content, lineEnding string) (string, error) {
	if lineEnding != "" {
		var err error
		content, err = convertLineEnding(content, lineEnding)
		if err != nil {
			return "", err
		}
	}
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:]), nil
}
