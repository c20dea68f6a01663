package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lrdgdown-eng/etiquetado/internal/auth"
	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/dataset"
	"github.com/lrdgdown-eng/etiquetado/internal/mcpgo"
	"github.com/lrdgdown-eng/etiquetado/internal/server"
)

func newServeCmd() *cobra.Command {
	var stdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the label tools over MCP",
		Long: `Serve the label tools over MCP.

1. STDIO Mode (--stdio): For local MCP clients
   - Uses stdio pipes for communication
   - No authentication required
   - Logs go to stderr

2. HTTP Mode (default): For remote deployment
   - POST /mcp: streamable HTTP, Bearer token required (AUTH_TOKEN)
   - GET /health: no authentication
   - Listens on PORT (default 8080)

Available MCP Tools:
- search_food, list_foods
- food_label, preparation_label
- add_custom_food, edit_custom_food, delete_custom_food`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdio {
				return runStdioMode(cmd)
			}
			return runHTTPMode(cmd)
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false, "Run in stdio mode for local MCP clients (default: HTTP mode)")
	return cmd
}

// runStdioMode runs the MCP server on stdio pipes
func runStdioMode(cmd *cobra.Command) error {
	// stdout carries MCP messages
	logger := config.NewLogger(cmd.ErrOrStderr(), config.LogFormatText)
	cfg := config.Load()

	logger.Info("🔌 Starting MCP server in STDIO mode",
		"mode", "stdio",
		"auth", "not required for stdio mode",
		"custom_store", cfg.CustomStore)

	app, err := server.NewServerInitializer(cfg, logger).Initialize(cmd.Context())
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer app.Close()

	mcpSrv := mcpgo.NewServer(app, auth.NewBearerTokenAuth(cfg.AuthToken), logger)
	return mcpSrv.ServeStdio()
}

// runHTTPMode runs the MCP server over streamable HTTP with bearer auth
func runHTTPMode(cmd *cobra.Command) error {
	logger := config.NewLogger(cmd.OutOrStdout(), config.LogFormatJSON)
	cfg := config.Load()

	logger.Info("🌐 Starting MCP server in HTTP mode",
		"mode", "http",
		"auth", "Bearer token required (except /health endpoint)",
		"port", cfg.Port)

	app, err := server.NewServerInitializer(cfg, logger).Initialize(cmd.Context())
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer app.Close()

	mcpSrv := mcpgo.NewServer(app, auth.NewBearerTokenAuth(cfg.AuthToken), logger)
	return server.ListenAndServe(cmd.Context(), ":"+cfg.Port, mcpSrv.Handler(), logger)
}

func newFetchCatalogCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch-catalog",
		Short: "Download the reference table and exit",
		Long: `Download CATALOG_URL into CATALOG_PATH when the local copy is missing or
out of date (ETag and size check), then exit. --force downloads it again regardless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cliLogger(cmd)
			cfg := config.Load()
			manager := dataset.NewManagerFromConfig(cfg, logger)

			logger.Info("🗄️  Starting catalog fetch",
				"url", cfg.CatalogURL,
				"target", manager.CatalogPath(),
				"force", force)

			var err error
			if force {
				err = manager.Refresh(cmd.Context())
			} else {
				err = manager.EnsureDataset(cmd.Context())
			}
			if err != nil {
				logger.Error("Failed to fetch catalog", "error", err)
				return err
			}

			logger.Info("✅ Catalog fetch completed", "path", manager.CatalogPath(), "metadata_path", cfg.MetadataPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Download even when the local copy is up to date")
	return cmd
}
