package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lrdgdown-eng/etiquetado/internal/calculator"
	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/dataset"
	"github.com/lrdgdown-eng/etiquetado/internal/query"
	"github.com/lrdgdown-eng/etiquetado/internal/store"
	"github.com/lrdgdown-eng/etiquetado/internal/warning"
)

// ServerInitializer handles common startup logic for the CLI and the MCP server
type ServerInitializer struct {
	config      *config.Config
	log         *slog.Logger
	dataManager *dataset.Manager
	engine      query.QueryEngine
}

// NewServerInitializer creates a new server initializer
func NewServerInitializer(cfg *config.Config, logger *slog.Logger) *ServerInitializer {
	return &ServerInitializer{
		config:      cfg,
		log:         logger,
		dataManager: dataset.NewManagerFromConfig(cfg, logger),
	}
}

// WithEngine makes Initialize use engine instead of creating one
func (si *ServerInitializer) WithEngine(engine query.QueryEngine) *ServerInitializer {
	si.engine = engine
	return si
}

// Initialize ensures the catalog file, imports it, merges the custom foods
// and returns the ready application
func (si *ServerInitializer) Initialize(ctx context.Context) (*App, error) {
	start := time.Now()
	si.log.Info("Initializing...")

	if si.config.IsDevelopment() {
		si.log.Warn("🚧 DEVELOPMENT MODE ENABLED 🚧",
			"environment", si.config.Environment,
			"note", "Detailed error messages will be returned to clients")
	}

	if err := si.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	table, err := warning.LookupPhase(si.config.WarningPhase)
	if err != nil {
		return nil, err
	}

	if err := si.dataManager.EnsureDataset(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog: %w", err)
	}

	engine := si.engine
	if engine == nil {
		engine, err = query.NewQueryEngine(si.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create query engine: %w", err)
		}
	}

	if err := engine.TestConnection(ctx); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to test connection: %w", err)
	}

	base, err := si.loadCatalog(ctx, engine)
	if err != nil {
		engine.Close()
		return nil, err
	}

	custom, err := store.Open(si.config, si.log)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to open custom store: %w", err)
	}

	calc := calculator.New(base, warning.NewClassifier(table), si.log)
	app := NewApp(engine, custom, calc, si.log)
	if err := app.ReloadCustom(ctx); err != nil {
		app.Close()
		return nil, err
	}

	si.log.Info("Initialized successfully",
		"foods", app.Calculator().Catalog().Len(),
		"warning_phase", table.Name,
		"custom_store", si.config.CustomStore,
		"duration", time.Since(start))
	return app, nil
}

func (si *ServerInitializer) loadCatalog(ctx context.Context, engine query.QueryEngine) (*catalog.Catalog, error) {
	start := time.Now()
	path := si.dataManager.CatalogPath()

	raw, err := engine.ReadTable(ctx, path, query.ReadOptions{SkipRows: si.config.CatalogSkipRows})
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	records, columns := catalog.FromTable(raw, false)
	si.log.Info("Catalog imported", "path", path, "rows", len(raw.Rows), "foods", len(records), "duration", time.Since(start))
	return catalog.New(records, columns), nil
}
