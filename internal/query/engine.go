package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Engine reads CSV and Parquet catalog files through an in-memory DuckDB
type Engine struct {
	db  *sql.DB
	log *slog.Logger
}

// Ensure Engine implements QueryEngine interface
var _ QueryEngine = (*Engine)(nil)

// NewEngine creates a new query engine
func NewEngine(logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &Engine{
		db:  db,
		log: logger,
	}, nil
}

// Close closes the database connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// sourceQuery picks the DuckDB table function for the file extension
func sourceQuery(path string, opts ReadOptions) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		skip := opts.SkipRows
		if skip < 0 {
			skip = 0
		}
		return fmt.Sprintf(`SELECT * FROM read_csv(?, header = true, all_varchar = true, skip = %d)`, skip), nil
	case ".parquet":
		return `SELECT * FROM read_parquet(?)`, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

// ReadTable loads every row of the file at path. NULL cells become "".
func (e *Engine) ReadTable(ctx context.Context, path string, opts ReadOptions) (*Table, error) {
	start := time.Now()
	e.log.Debug("ReadTable starting", "path", path, "skip_rows", opts.SkipRows)

	query, err := sourceQuery(path, opts)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, query, path)
	if err != nil {
		e.log.Error("DuckDB query failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	table := &Table{Columns: columns}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			e.log.Error("Row scan failed", "error", err)
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = cellString(v)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		e.log.Error("Rows iteration failed", "error", err)
		return nil, fmt.Errorf("rows error: %w", err)
	}

	e.log.Info("ReadTable completed", "path", path, "columns", len(columns), "rows", len(table.Rows), "duration", time.Since(start))
	return table, nil
}

func cellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprint(value)
	}
}

// TestConnection checks that DuckDB answers queries
func (e *Engine) TestConnection(ctx context.Context) error {
	start := time.Now()
	e.log.Debug("Testing DuckDB connection")

	var one int
	if err := e.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		e.log.Error("Connection test failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("connection test failed: %w", err)
	}

	e.log.Debug("Connection test successful", "duration", time.Since(start))
	return nil
}
