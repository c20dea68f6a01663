package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/lockfile"
	"github.com/lrdgdown-eng/etiquetado/internal/query"
)

const (
	lockPollInterval = 50 * time.Millisecond
	lockTimeout      = 10 * time.Second
)

// CSVStore keeps custom foods in a CSV file with the catalog's column headers
type CSVStore struct {
	path     string
	lockPath string
	log      *slog.Logger
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore creates a CSV-backed store. The file is created on first write.
func NewCSVStore(path, lockPath string, logger *slog.Logger) *CSVStore {
	return &CSVStore{path: path, lockPath: lockPath, log: logger}
}

// Path returns the CSV file path
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty store.
func (s *CSVStore) Load(ctx context.Context) ([]catalog.FoodRecord, error) {
	start := time.Now()
	records, err := s.read()
	if err != nil {
		s.log.Error("Failed to load custom foods", "path", s.path, "error", err)
		return nil, err
	}
	s.log.Debug("Loaded custom foods", "path", s.path, "count", len(records), "duration", time.Since(start))
	return records, nil
}

// Update runs fn under the store lock and atomically replaces the file
func (s *CSVStore) Update(ctx context.Context, fn UpdateFunc) error {
	start := time.Now()

	lock, err := lockfile.Wait(ctx, s.lockPath, lockPollInterval, lockTimeout)
	if err != nil {
		return fmt.Errorf("failed to lock custom store: %w", err)
	}
	defer lock.Release()

	records, err := s.read()
	if err != nil {
		return err
	}

	updated, err := fn(records)
	if err != nil {
		return err
	}

	if err := s.write(updated); err != nil {
		s.log.Error("Failed to write custom foods", "path", s.path, "error", err)
		return err
	}

	s.log.Info("Custom foods updated", "path", s.path, "count", len(updated), "duration", time.Since(start))
	return nil
}

// Close is a no-op for the CSV backend
func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) read() ([]catalog.FoodRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []catalog.FoodRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open custom store: %w", err)
	}
	defer f.Close()

	table, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse custom store %s: %w", s.path, err)
	}

	records, _ := catalog.FromTable(table, true)
	if records == nil {
		records = []catalog.FoodRecord{}
	}
	return records, nil
}

func readCSV(r io.Reader) (*query.Table, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &query.Table{}, nil
	}
	if rows[0][0] != catalog.NameHeader {
		return nil, fmt.Errorf("unexpected first column %q, want %q", rows[0][0], catalog.NameHeader)
	}
	return &query.Table{Columns: rows[0], Rows: rows[1:]}, nil
}

func (s *CSVStore) write(records []catalog.FoodRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := encodeCSV(tmp, catalog.ToTable(records, columnsFor(records))); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write custom store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync custom store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace custom store: %w", err)
	}
	return nil
}

// encodeCSV writes the header row then every data row
func encodeCSV(out io.Writer, table *query.Table) error {
	w := csv.NewWriter(out)
	if err := w.Write(table.Columns); err != nil {
		return err
	}
	return w.WriteAll(table.Rows)
}
