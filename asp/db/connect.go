// Package db opens the embedded libsql database backing the solve
// journal and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

// Connect opens the embedded libsql database at path, creating the file
// and its directory when missing, then verifies the build and applies
// pending migrations. The returned handle is ready for journal writes.
func Connect(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Journal database not found, creating a new one", "path", path)
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create db at path %s: %w", path, err)
		}
		file.Close()
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-64000&_temp_store=memory",
		path)

	slog.Info("Connecting to embedded libsql", "dsn", dsn)

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if err := verifyEmbeddedLibSQL(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// verifyEmbeddedLibSQL checks basic connectivity and the built-in JSON1
// support the journal's diagnostics column relies on.
func verifyEmbeddedLibSQL(db *sql.DB) error {
	ctx := context.Background()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("basic connectivity test failed: unexpected result %d", result)
	}

	var jsonResult string
	if err := db.QueryRowContext(ctx, `SELECT json_extract('{"test":"value"}', '$.test')`).Scan(&jsonResult); err != nil {
		slog.Warn("JSON1 test failed", "error", err)
	} else if jsonResult != "value" {
		slog.Warn("JSON1 test returned unexpected result", "result", jsonResult)
	} else {
		slog.Debug("JSON1 extension verified")
	}

	return nil
}
