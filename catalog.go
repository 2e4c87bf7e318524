package migrator

import (
	"fmt"
	"strings"
)

// Catalog is an ordered, validated, immutable list of migrations.
// Build one with Load, LoadFiles or LoadFS.
type Catalog struct {
	migrations []Migration
}

// Load validates migs and returns them as a catalog. The migrations must
// already be in strictly increasing version order; gaps between versions are
// allowed, duplicates are not. Load touches no database.
func Load(migs ...Migration) (*Catalog, error) {
	out := make([]Migration, len(migs))
	for i, m := range migs {
		m = m.Clone()
		if m.Direction == "" {
			m.Direction = Up
		}
		if m.Md5 == "" {
			sum, err := checksum(m.fingerprint(), "")
			if err != nil {
				return nil, err
			}
			m.Md5 = sum
		}
		out[i] = m
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return &Catalog{migrations: out}, nil
}

// validate walks the migrations once, tracking the last version seen.
func validate(migs []Migration) error {
	last := 0
	for i, m := range migs {
		if m.Version <= 0 {
			return &CatalogError{Version: m.Version, Reason: fmt.Sprintf("entry %d has a non-positive version", i)}
		}
		if m.Direction != Up {
			return &CatalogError{Version: m.Version, Reason: fmt.Sprintf("unsupported direction %q, migrations are forward-only", m.Direction)}
		}
		if m.Version == last {
			return &CatalogError{Version: m.Version, Reason: "duplicate version"}
		}
		if m.Version < last {
			return &CatalogError{Version: m.Version, Reason: fmt.Sprintf("out of order, follows version %d", last)}
		}
		if strings.TrimSpace(m.SQL) == "" && len(m.Rebuilds) == 0 {
			return &CatalogError{Version: m.Version, Reason: "migration has no statements"}
		}
		for _, r := range m.Rebuilds {
			if err := r.validate(); err != nil {
				return &CatalogError{Version: m.Version, Reason: err.Error()}
			}
		}
		last = m.Version
	}
	return nil
}

// Migrations returns a copy of the catalog's migrations in ascending order.
func (c *Catalog) Migrations() []Migration {
	out := make([]Migration, len(c.migrations))
	for i, m := range c.migrations {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of migrations in the catalog.
func (c *Catalog) Len() int {
	return len(c.migrations)
}

// Max returns the highest migration version, or 0 for an empty catalog.
func (c *Catalog) Max() int {
	if len(c.migrations) == 0 {
		return 0
	}
	return c.migrations[len(c.migrations)-1].Version
}

// Get returns the migration with the given version.
func (c *Catalog) Get(version int) (Migration, bool) {
	for _, m := range c.migrations {
		if m.Version == version {
			return m.Clone(), true
		}
	}
	return Migration{}, false
}
