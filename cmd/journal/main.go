// Package main opens the Project Journal store the way the desktop
// application does at startup: resolve the database file, apply the journal
// migrations, and refuse to continue if any of them fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/bcomnes/migrator/journal"
)

func main() {
	cfg, err := journal.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment: %v\n", err)
		os.Exit(1)
	}

	dbPath := flag.String("db", cfg.Path, "Path to the journal database file. Can also be set via JOURNAL_DB env var.")
	driver := flag.String("driver", cfg.Driver, "SQLite driver: sqlite3 or sqlite. Can also be set via JOURNAL_DRIVER env var.")
	verbose := flag.Bool("verbose", false, "Log every migration")
	flag.Parse()

	cfg.Path = *dbPath
	cfg.Driver = *driver

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := journal.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Journal store unavailable: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("[%s] Journal store %s is ready.\n", time.Now().Format(time.Kitchen), cfg.Path)
}
