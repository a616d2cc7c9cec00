// Package duckdb persists pipeline results in a DuckDB database so runs can be
// queried after the fact.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding result tables.
type Store struct {
	db   *sql.DB
	x    *sqlx.DB // same pool, used for struct scanning
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

	s := &Store{db: db, x: sqlx.NewDb(db, "duckdb"), path: path}
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

// Path returns the database path, empty for in-memory databases.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id BIGINT PRIMARY KEY,
		started_at TIMESTAMP,
		phenotype VARCHAR,
		covariates VARCHAR,
		window_kb DOUBLE,
		correction VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS run_inputs (
		run_id BIGINT,
		role VARCHAR,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS association_results (
		run_id BIGINT,
		seq BIGINT,
		snp VARCHAR,
		a1 VARCHAR,
		beta DOUBLE,
		stat DOUBLE,
		p DOUBLE,
		chr VARCHAR,
		se DOUBLE,
		n BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS gene_annotations (
		run_id BIGINT,
		seq BIGINT,
		gene_id VARCHAR,
		chr VARCHAR,
		start BIGINT,
		stop BIGINT,
		names VARCHAR,
		snps VARCHAR,
		n_snp BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS variant_annotations (
		run_id BIGINT,
		seq BIGINT,
		snp VARCHAR,
		gene_ids VARCHAR,
		n_genes BIGINT,
		gene_names VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS geneset_enrichment (
		run_id BIGINT,
		seq BIGINT,
		gene_set VARCHAR,
		n_genes BIGINT,
		n_overlap BIGINT,
		p DOUBLE,
		genes VARCHAR,
		adj_p DOUBLE
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendRows batch-inserts rows into table using the Appender API.
func (s *Store) appendRows(table string, n int, row func(i int) []driver.Value) error {
	if n == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := 0; i < n; i++ {
		if err := appender.AppendRow(row(i)...); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}

	return appender.Flush()
}
