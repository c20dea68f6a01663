package query

import (
	"context"
	"log/slog"
	"os"
)

// QueryEngine reads tabular catalog sources into memory
type QueryEngine interface {
	ReadTable(ctx context.Context, path string, opts ReadOptions) (*Table, error)
	TestConnection(ctx context.Context) error
	Close() error
}

// Table is a header row plus string cells, the shape shared by the catalog
// import and the custom food store
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ReadOptions controls how a source file is parsed
type ReadOptions struct {
	// SkipRows is the number of lines above the header row (CSV only)
	SkipRows int
}

// Cell returns the value at row/col, "" when the row is short
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// NewQueryEngine creates a new query engine
// Uses mock engine if QUERY_ENGINE_MOCK environment variable is set
func NewQueryEngine(logger *slog.Logger) (QueryEngine, error) {
	if os.Getenv("QUERY_ENGINE_MOCK") == "true" {
		return NewMockEngine(logger), nil
	}
	return NewEngine(logger)
}
