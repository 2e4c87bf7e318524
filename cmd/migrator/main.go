package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver, pure Go

	"github.com/bcomnes/migrator"
)

var versionString = migrator.Version + " (" + migrator.GitCommit + ")"

// usage prints the help text.
func usage() {
	header := `Usage:
  migrator [options] [command] [arguments]

Commands:
  migrate [target]    Apply pending migrations up to a target version (default: "max").
  list                List available migrations and mark the applied ones.
  validate            Check that applied migrations have not been edited.
  new <desc>          Create the next migration file with the provided description.
  drop-schema         Drop the schema version table.

Options:`
	fmt.Fprintln(os.Stderr, header)
	flag.PrintDefaults()
}

func main() {
	// Define global flags.
	connStr := flag.String("conn", "", "Connection string (a file path for SQLite). Can also be set via SQLITE_URL or DATABASE_URL env vars.")
	configPath := flag.String("config", "", "Path to a JSON or YAML configuration file (optional)")
	driver := flag.String("driver", migrator.DefaultConfig.Driver, "Database driver: sqlite3, sqlite or pg")
	migrationPattern := flag.String("migration-pattern", migrator.DefaultConfig.MigrationPattern, "Glob pattern for migration files")
	schemaTable := flag.String("schema-table", migrator.DefaultConfig.SchemaTable, "Name of the schema table")
	newline := flag.String("newline", "", "Newline style applied before checksumming: LF, CR or CRLF")
	skipChecksums := flag.Bool("skip-checksums", false, "Do not verify that applied migrations are unchanged")
	mode := flag.String("mode", "int", "Migration numbering mode (\"int\" or \"timestamp\") for new command")
	verbose := flag.Bool("verbose", false, "Log every migration step")
	helpFlag := flag.Bool("help", false, "Show help message")
	versionFlag := flag.Bool("version", false, "Show version")

	flag.Usage = usage
	flag.Parse()

	// Safeguard: check for any flag-like arguments after positional arguments.
	for _, arg := range flag.Args() {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintln(os.Stderr, "Error: Flags must be specified before the command. Please reorder your arguments.")
			usage()
			os.Exit(1)
		}
	}

	if *helpFlag {
		usage()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Println("migrator version:", versionString)
		os.Exit(0)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cliConfig, err := resolveConfig(flagValues{
		conn:             *connStr,
		configPath:       *configPath,
		driver:           *driver,
		migrationPattern: *migrationPattern,
		schemaTable:      *schemaTable,
		newline:          *newline,
		skipChecksums:    *skipChecksums,
		set:              set,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync() //nolint:errcheck
	cliConfig.Logger = logger

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no command provided.")
		usage()
		os.Exit(1)
	}
	command := args[0]

	switch command {
	case "migrate":
		target := "max"
		if len(args) > 1 {
			target = args[1]
		}
		cat := loadCatalog(cliConfig)
		err = withDB(cliConfig, func(ctx context.Context, g *migrator.Migrator) error {
			fmt.Printf("[%s] Starting migration to version %s...\n", time.Now().Format(time.Kitchen), target)
			applied, err := g.Migrate(ctx, cat, target)
			for _, m := range applied {
				fmt.Printf("  - Version %d: %s (%s)\n", m.Version, m.Name, m.Filename)
			}
			if err != nil {
				return fmt.Errorf("Migration error: %w", err)
			}
			fmt.Printf("[%s] Applied %d migrations.\n", time.Now().Format(time.Kitchen), len(applied))
			return nil
		})
	case "list":
		cat := loadCatalog(cliConfig)
		err = withDB(cliConfig, func(ctx context.Context, g *migrator.Migrator) error {
			applied, err := g.Applied(ctx)
			if err != nil {
				return fmt.Errorf("Error reading schema table: %w", err)
			}
			done := make(map[int]migrator.AppliedMigration, len(applied))
			current := 0
			for _, a := range applied {
				done[a.Version] = a
				if a.Version > current {
					current = a.Version
				}
			}
			fmt.Printf("Current database migration version: %d\n", current)
			fmt.Println("Available migrations:")
			for _, m := range cat.Migrations() {
				annot := " [pending]"
				if a, ok := done[m.Version]; ok {
					annot = " [applied " + a.RunAt + "]"
				}
				if m.Version == current {
					annot += " <== current"
				}
				fmt.Printf("Version %d: %s (%s)%s\n", m.Version, m.Name, m.Filename, annot)
			}
			return nil
		})
	case "validate":
		cat := loadCatalog(cliConfig)
		err = withDB(cliConfig, func(ctx context.Context, g *migrator.Migrator) error {
			if err := g.ValidateMigrations(ctx, cat); err != nil {
				return fmt.Errorf("Validation error: %w", err)
			}
			fmt.Printf("[%s] Applied migrations match the catalog.\n", time.Now().Format(time.Kitchen))
			return nil
		})
	case "new":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Error: a description is required for the new command.")
			usage()
			os.Exit(1)
		}
		description := args[1]
		fmt.Printf("[%s] Creating new migration with description '%s' in %s mode...\n", time.Now().Format(time.Kitchen), description, *mode)
		path, err := migrator.CreateMigration(cliConfig.Config, description, *mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating new migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[%s] New migration created: %s\n", time.Now().Format(time.Kitchen), path)
	case "drop-schema":
		err = withDB(cliConfig, func(ctx context.Context, g *migrator.Migrator) error {
			fmt.Printf("[%s] Dropping schema table...\n", time.Now().Format(time.Kitchen))
			if err := g.DropLedger(ctx); err != nil {
				return fmt.Errorf("Error dropping schema table: %w", err)
			}
			fmt.Printf("[%s] Schema table dropped.\n", time.Now().Format(time.Kitchen))
			return nil
		})
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errNoConn) {
			usage()
		}
		_ = logger.Sync()
		os.Exit(1)
	}
}

// loadCatalog reads the migration files or exits.
func loadCatalog(cliConfig cliConfig) *migrator.Catalog {
	cat, err := migrator.LoadFiles(cliConfig.MigrationPattern, cliConfig.Newline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading migrations: %v\n", err)
		os.Exit(1)
	}
	return cat
}

var errNoConn = errors.New("Error: connection URL must be provided via -conn flag, SQLITE_URL or DATABASE_URL environment variable, or config file")

// withDB opens the database and runs f with a migrator and a ten-minute
// context. Everything it opens is closed before it returns.
func withDB(cliConfig cliConfig, f func(ctx context.Context, g *migrator.Migrator) error) error {
	if cliConfig.Conn == "" {
		return errNoConn
	}
	driverName, err := sqlDriverName(cliConfig.Driver)
	if err != nil {
		return fmt.Errorf("Error: %w", err)
	}

	db, err := sql.Open(driverName, cliConfig.Conn)
	if err != nil {
		return fmt.Errorf("Error opening database: %w", err)
	}
	defer db.Close()

	g, err := migrator.NewMigrator(cliConfig.Config, db)
	if err != nil {
		return fmt.Errorf("Error initializing migrator: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	return f(ctx, g)
}
