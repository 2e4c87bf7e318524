package migrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CreateMigration creates the next migration file in the folder of
// cfg.MigrationPattern and returns its path.
// description: a human-readable description that will be kebab-cased for the filename.
// mode: "int" for integer increment (default) or "timestamp" to use the Unix timestamp.
func CreateMigration(cfg Config, description string, mode string) (string, error) {
	pattern := cfg.withDefaults().MigrationPattern
	migFolder := filepath.Dir(pattern)

	kebabDesc := kebabCase(description)
	if kebabDesc == "" {
		return "", fmt.Errorf("migration description %q has no usable characters", description)
	}

	var nextNumber string
	if strings.ToLower(mode) == "timestamp" {
		nextNumber = strconv.FormatInt(time.Now().Unix(), 10)
	} else {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return "", fmt.Errorf("failed to scan migration files: %w", err)
		}
		max := 0
		for _, file := range files {
			parts := strings.Split(filepath.Base(file), ".")
			if len(parts) < 2 {
				continue
			}
			// Parse without padding.
			num, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			if num > max {
				max = num
			}
		}
		// Use triple zero-padded integer.
		nextNumber = fmt.Sprintf("%03d", max+1)
	}

	filename := fmt.Sprintf("%s.%s.%s.sql", nextNumber, Up, kebabDesc)
	path := filepath.Join(migFolder, filename)

	content := []byte(upMarker + "\n-- Write your migration SQL here. Published migrations must never be edited.\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file %s: %w", path, err)
	}
	return path, nil
}

var nonAlphanumeric = regexp.MustCompile("[^a-z0-9]+")

// kebabCase converts a string to kebab-case.
func kebabCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CreateMigration scaffolds a new migration file using the migrator's configuration.
func (mg *Migrator) CreateMigration(description, mode string) (string, error) {
	return CreateMigration(mg.cfg, description, mode)
}
