package migrator_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcomnes/migrator"
)

// openPostgres connects to the database named by PG_URL, for example
// "host=localhost port=5432 user=postgres dbname=postgres sslmode=disable".
func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	connStr := os.Getenv("PG_URL")
	if connStr == "" {
		t.Skip("PG_URL not set")
	}
	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	const schema = "migrator_test"
	_, err = db.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE")
		db.Close()
	})
	return db
}

func TestPostgresRunsNativeAlter(t *testing.T) {
	db := openPostgres(t)
	ctx := context.Background()
	cfg := migrator.Config{Driver: "pg", SchemaTable: "migrator_test.schemaversion", CurrentSchema: "migrator_test"}

	cat := mustLoad(t,
		migrator.Migration{Version: 1, Name: "create_items", SQL: `
CREATE TABLE migrator_test.items (
    id   BIGSERIAL PRIMARY KEY,
    date TEXT NOT NULL
);
INSERT INTO migrator_test.items (date) VALUES ('2024-01-01');`},
		migrator.Migration{Version: 2, Name: "rename_date", Rebuilds: []migrator.Rebuild{{
			Table:      "items",
			Definition: "id BIGSERIAL PRIMARY KEY, date_created TEXT NOT NULL",
			Columns:    []migrator.ColumnMap{migrator.Copy("id"), migrator.Rename("date", "date_created")},
			Alter:      "ALTER TABLE migrator_test.items RENAME COLUMN date TO date_created;",
		}}},
	)

	n, err := migrator.Apply(ctx, cfg, cat, db)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var date string
	require.NoError(t, db.QueryRow("SELECT date_created FROM migrator_test.items").Scan(&date))
	assert.Equal(t, "2024-01-01", date)

	mg, err := migrator.NewMigrator(cfg, db)
	require.NoError(t, err)
	version, err := mg.DatabaseVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	n, err = mg.Apply(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
