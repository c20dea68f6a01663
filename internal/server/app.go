package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lrdgdown-eng/etiquetado/internal/calculator"
	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/query"
	"github.com/lrdgdown-eng/etiquetado/internal/store"
)

// App is the running application: the current calculator plus the resources
// needed to rebuild it when custom foods change
type App struct {
	engine query.QueryEngine
	store  store.Store
	log    *slog.Logger

	mu   sync.RWMutex
	calc *calculator.Calculator
}

// NewApp assembles an application from already initialized parts
func NewApp(engine query.QueryEngine, custom store.Store, calc *calculator.Calculator, logger *slog.Logger) *App {
	return &App{engine: engine, store: custom, calc: calc, log: logger}
}

// Calculator returns the calculator over the current catalog
func (a *App) Calculator() *calculator.Calculator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calc
}

// ReloadCustom re-reads the custom store and swaps in a catalog that includes it
func (a *App) ReloadCustom(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	custom, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load custom foods: %w", err)
	}
	a.calc = a.calc.WithCatalog(a.calc.Catalog().WithCustom(custom))
	a.log.Debug("Catalog rebuilt", "custom_foods", len(custom), "foods", a.calc.Catalog().Len())
	return nil
}

// AddCustom stores a new custom food and rebuilds the catalog
func (a *App) AddCustom(ctx context.Context, name string, values nutrients.Profile) (catalog.FoodRecord, error) {
	record, err := store.Add(ctx, a.store, name, values)
	if err != nil {
		return catalog.FoodRecord{}, err
	}
	return record, a.ReloadCustom(ctx)
}

// EditCustom edits every custom food called name and rebuilds the catalog
func (a *App) EditCustom(ctx context.Context, name, newName string, values nutrients.Profile) (int, error) {
	n, err := store.Edit(ctx, a.store, name, newName, values)
	if err != nil {
		return 0, err
	}
	return n, a.ReloadCustom(ctx)
}

// DeleteCustom removes every custom food called name and rebuilds the catalog
func (a *App) DeleteCustom(ctx context.Context, name string) (int, error) {
	n, err := store.Delete(ctx, a.store, name)
	if err != nil {
		return 0, err
	}
	return n, a.ReloadCustom(ctx)
}

// HealthCheck verifies the query engine still answers
func (a *App) HealthCheck(ctx context.Context) error {
	return a.engine.TestConnection(ctx)
}

// Close releases the engine and the store
func (a *App) Close() error {
	return errors.Join(a.engine.Close(), a.store.Close())
}
