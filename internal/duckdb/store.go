// Package duckdb records strain-seq runs and per-strain results in a DuckDB
// database so earlier builds can be queried and compared.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for run results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP,
		assembly VARCHAR,
		chrom VARCHAR,
		window_start BIGINT,
		reference_length BIGINT,
		reference_path VARCHAR,
		reference_size BIGINT,
		reference_mtime TIMESTAMP,
		table_path VARCHAR,
		table_size BIGINT,
		table_mtime TIMESTAMP,
		strategy VARCHAR,
		insertion VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS strain_results (
		run_id VARCHAR,
		strain VARCHAR,
		output_path VARCHAR,
		edited_length BIGINT,
		final_length BIGINT,
		length_delta BIGINT,
		applied BIGINT,
		skipped BIGINT,
		no_calls BIGINT,
		dropped BIGINT,
		status VARCHAR,
		error_message VARCHAR,
		PRIMARY KEY (run_id, strain)
	)`)
	return err
}
