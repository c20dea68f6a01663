package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(testLogger())
	assert.NoError(t, err)
	assert.NotNil(t, engine)

	defer engine.Close()
}

func TestEngine_TestConnection(t *testing.T) {
	engine, err := NewEngine(testLogger())
	require.NoError(t, err)
	defer engine.Close()

	assert.NoError(t, engine.TestConnection(context.Background()))
}

func TestEngine_ReadTable_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.csv")
	content := "CALCULADORA DE MACRO Y MICRONUTRIENTES\n" +
		"version 2023\n" +
		"Alimento,Cantidad(g/ml),Energía(kcal),Sodio (mg)\n" +
		"Plátano,100,89,1\n" +
		"Leche entera,100,61,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	engine, err := NewEngine(testLogger())
	require.NoError(t, err)
	defer engine.Close()

	table, err := engine.ReadTable(context.Background(), path, ReadOptions{SkipRows: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alimento", "Cantidad(g/ml)", "Energía(kcal)", "Sodio (mg)"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Plátano", table.Cell(0, 0))
	assert.Equal(t, "89", table.Cell(0, 2))
	assert.Equal(t, "", table.Cell(1, 3), "NULL cells become empty strings")
}

func TestEngine_ReadTable_UnsupportedFormat(t *testing.T) {
	engine, err := NewEngine(testLogger())
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.ReadTable(context.Background(), "/tmp/catalog.xlsm", ReadOptions{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported catalog format")
}

func TestEngine_ReadTable_MissingFile(t *testing.T) {
	engine, err := NewEngine(testLogger())
	require.NoError(t, err)
	defer engine.Close()

	_, err = engine.ReadTable(context.Background(), "/nonexistent/catalog.csv", ReadOptions{})
	assert.Error(t, err, "Should fail with nonexistent file")
}

func TestTable_Cell(t *testing.T) {
	table := &Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}}

	assert.Equal(t, "1", table.Cell(0, 0))
	assert.Equal(t, "", table.Cell(0, 1), "short row")
	assert.Equal(t, "", table.Cell(3, 0), "missing row")
	assert.Equal(t, "", table.Cell(-1, 0))
}

func TestMockEngine(t *testing.T) {
	mock := NewMockEngine(testLogger())
	ctx := context.Background()

	table, err := mock.ReadTable(ctx, "anything.csv", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Alimento", table.Columns[0])

	custom := &Table{Columns: []string{"Alimento"}, Rows: [][]string{{"Pan"}}}
	mock.SetTable("pan.csv", custom)
	table, err = mock.ReadTable(ctx, "pan.csv", ReadOptions{})
	require.NoError(t, err)
	assert.Same(t, custom, table)

	mock.SetError(errors.New("boom"))
	_, err = mock.ReadTable(ctx, "pan.csv", ReadOptions{})
	assert.Error(t, err)
	assert.Error(t, mock.TestConnection(ctx))
}
