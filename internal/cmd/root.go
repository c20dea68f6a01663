package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/server"
	"github.com/lrdgdown-eng/etiquetado/internal/version"
)

const rootLong = `etiquetado computes nutrition facts labels and Chilean "ALTO EN" warning
labels for single foods and for preparations made of several foods.

Foods come from a reference composition table (CSV or Parquet, imported with
DuckDB) plus user-defined custom foods kept in a CSV file or a SQLite database.

Commands:
- search, foods: look up foods in the catalog
- label: label for one food and a serving size
- prepare: label for a preparation made of catalog foods
- custom: list, add, edit and delete custom foods
- serve: expose the same operations as MCP tools over stdio or HTTP
- fetch-catalog: download the reference table and exit

Configuration is read from the environment and an optional .env file
(DATA_DIR, CATALOG_PATH, CATALOG_URL, CUSTOM_STORE, WARNING_PHASE, AUTH_TOKEN, PORT, ...).`

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "etiquetado",
		Short:         "Nutrition facts labels and ALTO EN warnings",
		Long:          rootLong,
		Version:       version.Tag(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newSearchCmd(),
		newFoodsCmd(),
		newLabelCmd(),
		newPrepareCmd(),
		newCustomCmd(),
		newServeCmd(),
		newFetchCatalogCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// cliLogger logs as text to stderr so stdout carries only command output
func cliLogger(cmd *cobra.Command) *slog.Logger {
	return config.NewLogger(cmd.ErrOrStderr(), config.LogFormatText)
}

// openApp loads the configuration and initializes the application
func openApp(cmd *cobra.Command, logger *slog.Logger) (*server.App, error) {
	cfg := config.Load()
	app, err := server.NewServerInitializer(cfg, logger).Initialize(cmd.Context())
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return nil, err
	}
	return app, nil
}

// withApp runs fn against an initialized application and closes it afterwards
func withApp(cmd *cobra.Command, fn func(app *server.App) error) error {
	logger := cliLogger(cmd)
	app, err := openApp(cmd, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close application", "error", err)
		}
	}()
	return fn(app)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

// Execute runs the command tree. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// Run is the main entry point for the CLI application
func Run() error {
	return Execute()
}
