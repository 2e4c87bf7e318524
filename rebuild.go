package migrator

import (
	"fmt"
	"strings"
)

// ColumnMap carries one column from the original table into the shadow
// table. From may name a different column than To, which is how a column is
// renamed. Columns left out of a rebuild are dropped.
type ColumnMap struct {
	From string
	To   string
}

// Copy keeps a column under the same name.
func Copy(col string) ColumnMap {
	return ColumnMap{From: col, To: col}
}

// Rename reads a column from its old name and writes it under a new one.
func Rename(from, to string) ColumnMap {
	return ColumnMap{From: from, To: to}
}

// Rebuild describes a table rebuild: create a shadow table with the new
// shape, copy rows into it, drop the original and rename the shadow into
// its place. It covers the structural changes SQLite cannot express with
// ALTER TABLE, such as renaming or dropping a referenced column or changing
// a foreign key target or its ON DELETE policy.
type Rebuild struct {
	// Table is the table being rebuilt.
	Table string

	// Shadow is the name of the temporary table. Defaults to Table + "_rebuild".
	Shadow string

	// Definition is the column and constraint list of the new table, the
	// text between the parentheses of CREATE TABLE. Foreign key clauses,
	// including their ON DELETE policy, belong here.
	Definition string

	// Columns lists the columns copied from the original table.
	Columns []ColumnMap

	// Indexes are CREATE INDEX statements run after the rename. Dropping
	// the original table drops its indexes.
	Indexes []string

	// Alter is an equivalent native ALTER statement. Engines that support
	// it run Alter instead of the rebuild.
	Alter string
}

func (r Rebuild) shadowName() string {
	if r.Shadow != "" {
		return r.Shadow
	}
	return r.Table + "_rebuild"
}

func (r Rebuild) validate() error {
	switch {
	case strings.TrimSpace(r.Table) == "":
		return fmt.Errorf("rebuild is missing a table name")
	case strings.TrimSpace(r.Definition) == "":
		return fmt.Errorf("rebuild of %s is missing a table definition", r.Table)
	case len(r.Columns) == 0:
		return fmt.Errorf("rebuild of %s copies no columns", r.Table)
	case strings.EqualFold(r.shadowName(), r.Table):
		return fmt.Errorf("rebuild of %s uses the table itself as shadow", r.Table)
	}
	seen := make(map[string]struct{}, len(r.Columns))
	for _, c := range r.Columns {
		if c.From == "" || c.To == "" {
			return fmt.Errorf("rebuild of %s has an empty column mapping", r.Table)
		}
		key := strings.ToLower(c.To)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("rebuild of %s writes column %s twice", r.Table, c.To)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Statements returns the rebuild as plain SQL statements, in execution order.
func (r Rebuild) Statements() []string {
	shadow := r.shadowName()
	to := make([]string, len(r.Columns))
	from := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		to[i] = c.To
		from[i] = c.From
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (\n%s\n);", shadow, strings.TrimSpace(r.Definition)),
		fmt.Sprintf("INSERT INTO %s (%s)\nSELECT %s\nFROM %s;",
			shadow, strings.Join(to, ", "), strings.Join(from, ", "), r.Table),
		fmt.Sprintf("DROP TABLE %s;", r.Table),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", shadow, r.Table),
	}
	return append(stmts, r.Indexes...)
}

// planRebuild picks the statements that perform r on the client's engine.
func planRebuild(c Client, r Rebuild) []string {
	if c.SupportsAlter() && strings.TrimSpace(r.Alter) != "" {
		return []string{r.Alter}
	}
	return r.Statements()
}

// needsForeignKeysOff reports whether m must run with foreign key
// enforcement suspended on the client's engine.
func needsForeignKeysOff(c Client, m Migration) bool {
	if m.ForeignKeysOff {
		return true
	}
	if len(m.Rebuilds) == 0 {
		return false
	}
	for _, r := range m.Rebuilds {
		if !c.SupportsAlter() || strings.TrimSpace(r.Alter) == "" {
			return true
		}
	}
	return false
}
