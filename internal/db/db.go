// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

// Package db persists a history of dead-code-elimination runs to a local
// SQLite database, so `wasmprune run` can record what it did and later
// runs can be searched for regressions.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

// Run records the outcome of one dead-code-elimination pass over a module.
type Run struct {
	ID                int64     `json:"id"`
	ModuleHash        string    `json:"module_hash"`
	ModulePath        string    `json:"module_path"`
	FunctionsBefore   int       `json:"functions_before"`
	FunctionsAfter    int       `json:"functions_after"`
	BytesBefore       int       `json:"bytes_before"`
	BytesAfter        int       `json:"bytes_after"`
	Status            string    `json:"status"`
	ErrorMsg          string    `json:"error_msg"`
	Timestamp         time.Time `json:"timestamp"`
}

// BytesRemoved is the number of bytes the run's passes eliminated.
func (r Run) BytesRemoved() int {
	return r.BytesBefore - r.BytesAfter
}

// FunctionsRemoved is the number of whole functions the run's passes eliminated.
func (r Run) FunctionsRemoved() int {
	return r.FunctionsBefore - r.FunctionsAfter
}

// Store handles database operations.
type Store struct {
	db *sql.DB
}

// InitDB opens (creating if necessary) the SQLite database under the
// user's home directory and ensures its schema exists.
func InitDB() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}
	dir := filepath.Join(home, ".wasmprune")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	dbPath := filepath.Join(dir, "runs.db")

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Store{db: sqlDB}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		module_hash TEXT NOT NULL,
		module_path TEXT NOT NULL,
		functions_before INTEGER,
		functions_after INTEGER,
		bytes_before INTEGER,
		bytes_after INTEGER,
		status TEXT,
		error_msg TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_module_hash ON runs(module_hash);
	CREATE INDEX IF NOT EXISTS idx_runs_error ON runs(error_msg);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// SaveRun persists the outcome of a dead-code-elimination run.
func (s *Store) SaveRun(run *Run) error {
	query := `
	INSERT INTO runs (module_hash, module_path, functions_before, functions_after, bytes_before, bytes_after, status, error_msg, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.ModuleHash, run.ModulePath,
		run.FunctionsBefore, run.FunctionsAfter,
		run.BytesBefore, run.BytesAfter,
		run.Status, run.ErrorMsg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// SearchParams defines the criteria for searching past runs.
type SearchParams struct {
	ModuleHash string
	ErrorRegex string
	Limit      int
}

// SearchRuns searches for past runs matching params, most recent first.
func (s *Store) SearchRuns(params SearchParams) ([]Run, error) {
	query := "SELECT id, module_hash, module_path, functions_before, functions_after, bytes_before, bytes_after, status, error_msg, timestamp FROM runs WHERE 1=1"
	args := []interface{}{}

	if params.ModuleHash != "" {
		query += " AND module_hash = ?"
		args = append(args, params.ModuleHash)
	}

	query += " ORDER BY timestamp DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var errorRe *regexp.Regexp
	if params.ErrorRegex != "" {
		errorRe, err = regexp.Compile(params.ErrorRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid error regex: %w", err)
		}
	}

	var results []Run
	count := 0
	for rows.Next() {
		if params.Limit > 0 && count >= params.Limit {
			break
		}

		var run Run
		var ts time.Time
		if err := rows.Scan(&run.ID, &run.ModuleHash, &run.ModulePath,
			&run.FunctionsBefore, &run.FunctionsAfter,
			&run.BytesBefore, &run.BytesAfter,
			&run.Status, &run.ErrorMsg, &ts); err != nil {
			continue
		}
		run.Timestamp = ts

		if errorRe != nil && !errorRe.MatchString(run.ErrorMsg) {
			continue
		}

		results = append(results, run)
		count++
	}

	return results, nil
}
