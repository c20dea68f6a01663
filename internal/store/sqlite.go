package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
)

// SQLiteStore keeps custom foods in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger

	// serializes read-modify-write cycles inside this process
	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, log: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS custom_foods (
        position INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        reference_quantity REAL NOT NULL,
        nutrients TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_custom_foods_name ON custom_foods(name);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRecords(ctx context.Context, q queryer) ([]catalog.FoodRecord, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT name, reference_quantity, nutrients
        FROM custom_foods
        ORDER BY position
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom foods: %w", err)
	}
	defer rows.Close()

	records := []catalog.FoodRecord{}
	for rows.Next() {
		var (
			name      string
			reference float64
			raw       string
		)
		if err := rows.Scan(&name, &reference, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan custom food: %w", err)
		}

		profile := nutrients.Profile{}
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			return nil, fmt.Errorf("failed to decode nutrients of %q: %w", name, err)
		}
		records = append(records, catalog.NewFoodRecord(name, reference, profile, true))
	}

	return records, rows.Err()
}

// Load returns the custom foods ordered by insertion position
func (s *SQLiteStore) Load(ctx context.Context) ([]catalog.FoodRecord, error) {
	start := time.Now()
	records, err := loadRecords(ctx, s.db)
	if err != nil {
		s.log.Error("Failed to load custom foods", "error", err)
		return nil, err
	}
	s.log.Debug("Loaded custom foods", "count", len(records), "duration", time.Since(start))
	return records, nil
}

// Update reads, transforms and rewrites the table inside one transaction
func (s *SQLiteStore) Update(ctx context.Context, fn UpdateFunc) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	records, err := loadRecords(ctx, tx)
	if err != nil {
		return err
	}

	updated, err := fn(records)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_foods`); err != nil {
		return fmt.Errorf("failed to clear custom foods: %w", err)
	}

	insert := `
        INSERT INTO custom_foods (position, name, reference_quantity, nutrients)
        VALUES (?, ?, ?, ?)
    `
	for i, r := range updated {
		raw, err := json.Marshal(r.Nutrients)
		if err != nil {
			return fmt.Errorf("failed to encode nutrients of %q: %w", r.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, i, r.Name, r.Reference(), string(raw)); err != nil {
			return fmt.Errorf("failed to insert custom food: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit custom foods: %w", err)
	}

	s.log.Info("Custom foods updated", "count", len(updated), "duration", time.Since(start))
	return nil
}
