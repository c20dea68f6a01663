// Package store persists the user's custom foods.
//
// Every change is a whole-store read-modify-write run through Store.Update,
// which each backend makes atomic: the CSV backend under a lock file with an
// atomic rename, the SQLite backend inside one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
)

var (
	// ErrNotFound is returned when no custom food has the given name
	ErrNotFound = errors.New("custom food not found")
	// ErrNameRequired is returned when a custom food name is blank
	ErrNameRequired = errors.New("custom food name is required")
	// ErrNegativeValue is returned when a nutrient value is negative or not finite
	ErrNegativeValue = errors.New("nutrient values must be finite and >= 0")
)

// UpdateFunc receives the full store content and returns its replacement
type UpdateFunc func(records []catalog.FoodRecord) ([]catalog.FoodRecord, error)

// Store is a custom food backend
type Store interface {
	// Load returns all custom foods in insertion order. An absent store is empty.
	Load(ctx context.Context) ([]catalog.FoodRecord, error)
	// Update applies fn to the full content and persists the result atomically.
	// Nothing is written when fn returns an error.
	Update(ctx context.Context, fn UpdateFunc) error
	// Close releases backend resources
	Close() error
}

// Open creates the backend selected by cfg.CustomStore
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.CustomStore {
	case config.StoreCSV, "":
		return NewCSVStore(cfg.CustomStorePath, cfg.StoreLockFile(), logger), nil
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.CustomStorePath, logger)
	default:
		return nil, fmt.Errorf("unknown custom store backend %q", cfg.CustomStore)
	}
}

func validateValues(values nutrients.Profile) error {
	for key, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %v", ErrNegativeValue, key, v)
		}
	}
	return nil
}

// Add appends a custom food with reference quantity 100
func Add(ctx context.Context, s Store, name string, values nutrients.Profile) (catalog.FoodRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.FoodRecord{}, ErrNameRequired
	}
	if err := validateValues(values); err != nil {
		return catalog.FoodRecord{}, err
	}

	record := catalog.NewFoodRecord(name, nutrients.DefaultReferenceQuantity, values.Clone(), true)
	err := s.Update(ctx, func(records []catalog.FoodRecord) ([]catalog.FoodRecord, error) {
		return append(records, record), nil
	})
	if err != nil {
		return catalog.FoodRecord{}, err
	}
	return record, nil
}

// Edit renames every custom food called name to newName (blank keeps the name)
// and overwrites the nutrient fields present in values. It returns how many
// records changed.
func Edit(ctx context.Context, s Store, name, newName string, values nutrients.Profile) (int, error) {
	name = strings.TrimSpace(name)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		newName = name
	}
	if err := validateValues(values); err != nil {
		return 0, err
	}

	changed := 0
	err := s.Update(ctx, func(records []catalog.FoodRecord) ([]catalog.FoodRecord, error) {
		changed = 0
		for i, r := range records {
			if r.Name != name {
				continue
			}
			profile := r.Nutrients.Clone()
			for key, v := range values {
				profile[key] = v
			}
			records[i] = catalog.NewFoodRecord(newName, r.ReferenceQuantity, profile, true)
			changed++
		}
		if changed == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return records, nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// Delete removes every custom food called name and returns how many were removed
func Delete(ctx context.Context, s Store, name string) (int, error) {
	name = strings.TrimSpace(name)

	removed := 0
	err := s.Update(ctx, func(records []catalog.FoodRecord) ([]catalog.FoodRecord, error) {
		kept := records[:0]
		removed = 0
		for _, r := range records {
			if r.Name == name {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if removed == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// columnsFor returns the standard keys followed by any extra keys the records
// carry, so rewriting a file never drops a column
func columnsFor(records []catalog.FoodRecord) []nutrients.Key {
	known := make(map[nutrients.Key]bool, len(nutrients.Standard))
	for _, key := range nutrients.Standard {
		known[key] = true
	}

	var extra []nutrients.Key
	for _, r := range records {
		for key := range r.Nutrients {
			if !known[key] {
				known[key] = true
				extra = append(extra, key)
			}
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	columns := make([]nutrients.Key, 0, len(nutrients.Standard)+len(extra))
	columns = append(columns, nutrients.Standard...)
	return append(columns, extra...)
}
