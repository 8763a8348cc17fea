// Package duckdb exports synchronized chromosomes to DuckDB: placed
// variants per genome and allele, tracker offsets and meta-genome lengths,
// grouped by export run.
package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/marcboeker/go-duckdb"
)

// SchemaVersion is the table layout written by this package. Exports are
// derived data: a database at an older version is dropped and recreated.
const SchemaVersion = 2

// ErrNewerSchema is returned when a database was written by a newer layout.
var ErrNewerSchema = errors.New("database schema is newer than supported")

var tables = []string{"schema_info", "runs", "run_files", "tracks", "offsets", "meta_lengths"}

// Store manages a DuckDB connection holding exported runs.
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

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist and checks the stored
// schema version.
func (s *Store) ensureSchema() error {
	version, err := s.storedVersion()
	if err != nil {
		return err
	}
	switch {
	case version > SchemaVersion:
		return fmt.Errorf("%w: version %d, supported %d", ErrNewerSchema, version, SchemaVersion)
	case version > 0 && version < SchemaVersion:
		for _, t := range tables {
			if _, err := s.db.Exec("DROP TABLE IF EXISTS " + t); err != nil {
				return fmt.Errorf("drop %s: %w", t, err)
			}
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_info (
			key VARCHAR PRIMARY KEY,
			value VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			seq BIGINT,
			created_at TIMESTAMP,
			genomes VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS run_files (
			run_id VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tracks (
			run_id VARCHAR,
			genome VARCHAR,
			chrom VARCHAR,
			allele INTEGER,
			ref_pos BIGINT,
			type VARCHAR,
			length BIGINT,
			meta_start BIGINT,
			meta_stop BIGINT,
			extra_offset BIGINT,
			filter VARCHAR,
			quality DOUBLE,
			genotype VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS offsets (
			run_id VARCHAR,
			genome VARCHAR,
			chrom VARCHAR,
			ref_pos BIGINT,
			synthesized BOOLEAN,
			padding BIGINT,
			initial_meta_offset BIGINT,
			next_meta_offset BIGINT,
			initial_genome_offset_0 BIGINT,
			next_genome_offset_0 BIGINT,
			initial_genome_offset_1 BIGINT,
			next_genome_offset_1 BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS meta_lengths (
			run_id VARCHAR,
			chrom VARCHAR,
			ref_length BIGINT,
			meta_length BIGINT,
			PRIMARY KEY (run_id, chrom)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(`INSERT INTO schema_info (key, value) VALUES ('schema_version', ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, strconv.Itoa(SchemaVersion))
	return err
}

// storedVersion returns the schema version of an existing database, 0 for
// a fresh one.
func (s *Store) storedVersion() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM information_schema.tables WHERE table_name = 'schema_info'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("inspect schema: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	var raw string
	err = s.db.QueryRow(`SELECT value FROM schema_info WHERE key = 'schema_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("read schema version %q: %w", raw, err)
	}
	return v, nil
}

// Version returns the schema version recorded in the database.
func (s *Store) Version() (int, error) {
	return s.storedVersion()
}
