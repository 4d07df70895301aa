package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RunMigrations executes *.up.sql files from the migrations directory in
// lexical order. Files are expected to be idempotent (IF NOT EXISTS /
// ON CONFLICT DO NOTHING) so reruns at startup are safe.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string) error {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	for _, fileName := range migrationFiles {
		sqlBytes, err := os.ReadFile(filepath.Join(migrationsPath, fileName))
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", fileName, err)
		}

		if _, err := db.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", fileName, err)
		}

		db.log.Info("applied migration", "file", fileName)
	}

	return nil
}
