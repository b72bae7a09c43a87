// Package history persists a record of completed sync passes.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lumadocs/driveline/internal/domain"
)

// Store handles pass history persistence
type Store struct {
	db *sql.DB
}

// PassRecord represents a single completed sync pass
type PassRecord struct {
	ID        int64
	OwnerID   string
	StartTime time.Time
	EndTime   time.Time
	Status    domain.PassStatus
	Added     int
	Updated   int
	Removed   int
	Skipped   int
	Errors    int
	Error     string
}

// NewStore opens the pass history database under dataDir
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "driveline.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		added INTEGER DEFAULT 0,
		updated INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_passes_start_time ON passes(start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_passes_status ON passes(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SavePass records a completed sync pass
func (s *Store) SavePass(record PassRecord) error {
	switch record.Status {
	case domain.PassSuccess, domain.PassPartial, domain.PassFailed:
	default:
		return fmt.Errorf("invalid status: %s", record.Status)
	}

	query := `
		INSERT INTO passes (owner_id, start_time, end_time, status, added, updated, removed, skipped, errors, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		record.OwnerID,
		record.StartTime,
		record.EndTime,
		string(record.Status),
		record.Added,
		record.Updated,
		record.Removed,
		record.Skipped,
		record.Errors,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save pass record: %w", err)
	}

	return nil
}

const passCols = "id, owner_id, start_time, end_time, status, added, updated, removed, skipped, errors, error"

func scanPass(scanner interface{ Scan(...any) error }) (PassRecord, error) {
	var record PassRecord
	var status string
	err := scanner.Scan(
		&record.ID,
		&record.OwnerID,
		&record.StartTime,
		&record.EndTime,
		&status,
		&record.Added,
		&record.Updated,
		&record.Removed,
		&record.Skipped,
		&record.Errors,
		&record.Error,
	)
	record.Status = domain.PassStatus(status)
	return record, err
}

// GetHistory retrieves the most recent passes, newest first
func (s *Store) GetHistory(limit int) ([]PassRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM passes
		ORDER BY start_time DESC
		LIMIT ?
	`, passCols)

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		record, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// GetLastSuccess retrieves the most recent fully successful pass, or nil
func (s *Store) GetLastSuccess() (*PassRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM passes
		WHERE status = 'success'
		ORDER BY start_time DESC
		LIMIT 1
	`, passCols)

	record, err := scanPass(s.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
