package store

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{
			name: "csv",
			open: func(t *testing.T) Store {
				dir := t.TempDir()
				path := filepath.Join(dir, "alimentos_personalizados.csv")
				return NewCSVStore(path, path+".lock", config.NewTestLogger(io.Discard, "debug"))
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "custom.db"), config.NewTestLogger(io.Discard, "debug"))
				require.NoError(t, err)
				t.Cleanup(func() { s.Close() })
				return s
			},
		},
	}
}

func names(records []catalog.FoodRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestStore_EmptyLoad(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			records, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, records)
			assert.Empty(t, records)
		})
	}
}

func TestStore_AddEditDelete(t *testing.T) {
	ctx := context.Background()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			added, err := Add(ctx, s, "  Queque casero ", nutrients.Profile{
				nutrients.Energy: 380, nutrients.Sugars: 25.5, nutrients.Sodium: 210,
			})
			require.NoError(t, err)
			assert.Equal(t, "Queque casero", added.Name)
			assert.Equal(t, 100.0, added.ReferenceQuantity)
			assert.True(t, added.Custom)

			_, err = Add(ctx, s, "Pan amasado", nutrients.Profile{nutrients.Energy: 290})
			require.NoError(t, err)
			_, err = Add(ctx, s, "Queque casero", nutrients.Profile{nutrients.Energy: 400})
			require.NoError(t, err)

			records, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Queque casero", "Pan amasado", "Queque casero"}, names(records))
			assert.Equal(t, 25.5, records[0].Nutrients.Get(nutrients.Sugars))
			assert.Equal(t, "queque casero", records[0].NormalizedName)
			for _, r := range records {
				assert.True(t, r.Custom)
			}

			changed, err := Edit(ctx, s, "Queque casero", "Queque de vainilla", nutrients.Profile{nutrients.Sodium: 150})
			require.NoError(t, err)
			assert.Equal(t, 2, changed)

			records, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Queque de vainilla", "Pan amasado", "Queque de vainilla"}, names(records))
			assert.Equal(t, 150.0, records[0].Nutrients.Get(nutrients.Sodium))
			assert.Equal(t, 380.0, records[0].Nutrients.Get(nutrients.Energy))
			assert.Equal(t, 400.0, records[2].Nutrients.Get(nutrients.Energy))

			removed, err := Delete(ctx, s, "Queque de vainilla")
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			records, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Pan amasado"}, names(records))
		})
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			_, err := Add(ctx, s, "Pan", nutrients.Profile{nutrients.Energy: 290})
			require.NoError(t, err)

			tests := []struct {
				name     string
				run      func() error
				expected error
			}{
				{"add blank name", func() error {
					_, err := Add(ctx, s, "   ", nutrients.Profile{})
					return err
				}, ErrNameRequired},
				{"add negative value", func() error {
					_, err := Add(ctx, s, "Malo", nutrients.Profile{nutrients.Energy: -1})
					return err
				}, ErrNegativeValue},
				{"add NaN value", func() error {
					_, err := Add(ctx, s, "Malo", nutrients.Profile{nutrients.Energy: math.NaN()})
					return err
				}, ErrNegativeValue},
				{"edit missing", func() error {
					_, err := Edit(ctx, s, "No existe", "", nutrients.Profile{})
					return err
				}, ErrNotFound},
				{"edit negative value", func() error {
					_, err := Edit(ctx, s, "Pan", "", nutrients.Profile{nutrients.Sodium: -5})
					return err
				}, ErrNegativeValue},
				{"delete missing", func() error {
					_, err := Delete(ctx, s, "No existe")
					return err
				}, ErrNotFound},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					assert.ErrorIs(t, tt.run(), tt.expected)
				})
			}

			records, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Pan"}, names(records))
		})
	}
}

func TestStore_UpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			_, err := Add(ctx, s, "Pan", nutrients.Profile{})
			require.NoError(t, err)

			err = s.Update(ctx, func(records []catalog.FoodRecord) ([]catalog.FoodRecord, error) {
				return nil, boom
			})
			assert.ErrorIs(t, err, boom)

			records, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}
}

func TestEdit_KeepsNameWhenBlank(t *testing.T) {
	ctx := context.Background()
	s := backends()[0].open(t)

	_, err := Add(ctx, s, "Pan", nutrients.Profile{nutrients.Energy: 290})
	require.NoError(t, err)

	_, err = Edit(ctx, s, "Pan", "", nutrients.Profile{nutrients.Energy: 300})
	require.NoError(t, err)

	records, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Pan", records[0].Name)
	assert.Equal(t, 300.0, records[0].Nutrients.Get(nutrients.Energy))
}

func TestCSVStore_FileFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "custom.csv")
	s := NewCSVStore(path, path+".lock", config.NewTestLogger(io.Discard, "debug"))

	_, err := Add(ctx, s, "Pan", nutrients.Profile{nutrients.Energy: 290, nutrients.Sodium: 480})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "Alimento,Cantidad(g/ml),Energía(kcal)")
	assert.Contains(t, content, "Pan,100,290")
	assert.NoFileExists(t, path+".lock")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeCSV_WriteError(t *testing.T) {
	records := []catalog.FoodRecord{
		catalog.NewFoodRecord("Pan", 100, nutrients.Profile{nutrients.Energy: 290}, true),
	}
	table := catalog.ToTable(records, []nutrients.Key{nutrients.Energy})

	err := encodeCSV(failingWriter{}, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCSVStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.csv")
	s := NewCSVStore(path, path+".lock", config.NewTestLogger(io.Discard, "debug"))

	_, err := Add(ctx, s, "Pan", nutrients.Profile{nutrients.Energy: 290})
	require.NoError(t, err)
	_, err = Edit(ctx, s, "Pan", "", nutrients.Profile{nutrients.Sodium: 480})
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
	assert.FileExists(t, path)
}

func TestCSVStore_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.csv")
	content := "Alimento,Cantidad(g/ml),Energía(kcal),Sodio (mg),Colesterol (mg)\n" +
		"Mermelada,100,250,12,0\n" +
		"Manjar,50,160,,3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s := NewCSVStore(path, path+".lock", config.NewTestLogger(io.Discard, "debug"))
	records, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 250.0, records[0].Nutrients.Get(nutrients.Energy))
	assert.Equal(t, 50.0, records[1].ReferenceQuantity)
	assert.Equal(t, 0.0, records[1].Nutrients.Get(nutrients.Sodium))
	assert.Equal(t, 3.0, records[1].Nutrients.Get(nutrients.Key("Colesterol (mg)")))

	// Rewriting keeps the extra column
	_, err = Delete(context.Background(), s, "Mermelada")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Colesterol (mg)")
	assert.Contains(t, string(data), "Manjar,50,")
}

func TestCSVStore_CorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"ragged rows", "Alimento,Energía(kcal)\nPan,290,extra\n"},
		{"wrong header", "Nombre,Energía(kcal)\nPan,290\n"},
		{"bad quoting", "Alimento,Energía(kcal)\n\"Pan,290\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "custom.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			s := NewCSVStore(path, path+".lock", config.NewTestLogger(io.Discard, "debug"))
			_, err := s.Load(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestCSVStore_LockHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.csv")
	s := NewCSVStore(path, path+".lock", config.NewTestLogger(io.Discard, "debug"))
	require.NoError(t, os.WriteFile(path+".lock", []byte("1\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Add(ctx, s, "Pan", nutrients.Profile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")
	dir := t.TempDir()

	csvStore, err := Open(&config.Config{CustomStore: config.StoreCSV, CustomStorePath: filepath.Join(dir, "c.csv")}, logger)
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, csvStore)

	sqliteStore, err := Open(&config.Config{CustomStore: config.StoreSQLite, CustomStorePath: filepath.Join(dir, "c.db")}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	sqliteStore.Close()

	_, err = Open(&config.Config{CustomStore: "mongo"}, logger)
	assert.Error(t, err)
}
