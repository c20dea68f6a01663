package query

import (
	"context"
	"log/slog"
	"sync"
)

// MockEngine is a mock implementation for testing
type MockEngine struct {
	mu     sync.RWMutex
	tables map[string]*Table
	err    error
	log    *slog.Logger
}

// NewMockEngine creates a new mock engine for testing
func NewMockEngine(logger *slog.Logger) *MockEngine {
	return &MockEngine{
		log:    logger,
		tables: map[string]*Table{},
	}
}

// DefaultTable is what the mock returns for paths without a registered table
func DefaultTable() *Table {
	return &Table{
		Columns: []string{"Alimento", "Cantidad(g/ml)", "Energía(kcal)", "Proteínas (g)", "Lípidos totales (g)", "AG Sat (g)", "HdeC disp (g)", "Azúcares totales (g)", "Sodio (mg)", "Fuente"},
		Rows: [][]string{
			{"1 Frutas", "", "", "", "", "", "", "", "", ""},
			{"Plátano", "100", "89", "1.1", "0.3", "0.1", "20.2", "12.2", "1", "INTA"},
			{"Leche entera", "100", "61", "3.2", "3.3", "1.9", "4.8", "4.8", "43", "INTA"},
			{"Chocolate de leche", "100", "535", "7.7", "29.7", "18.5", "59.4", "51.5", "79", "INTA"},
			{"12. Schmidt H. Tabla de composición", "", "", "", "", "", "", "", "", ""},
		},
	}
}

// ReadTable returns the table registered for path, or DefaultTable
func (m *MockEngine) ReadTable(ctx context.Context, path string, opts ReadOptions) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if t, ok := m.tables[path]; ok {
		return t, nil
	}
	m.log.Debug("MockEngine returning default table", "path", path)
	return DefaultTable(), nil
}

// TestConnection tests the connection (always succeeds for mock)
func (m *MockEngine) TestConnection(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Close closes the mock engine (no-op)
func (m *MockEngine) Close() error {
	return nil
}

// SetError sets an error to be returned by the mock
func (m *MockEngine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetTable registers the table returned for path
func (m *MockEngine) SetTable(path string, table *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[path] = table
}
