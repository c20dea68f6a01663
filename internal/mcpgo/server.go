package mcpgo

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lrdgdown-eng/etiquetado/internal/auth"
	"github.com/lrdgdown-eng/etiquetado/internal/calculator"
	"github.com/lrdgdown-eng/etiquetado/internal/catalog"
	"github.com/lrdgdown-eng/etiquetado/internal/nutrients"
	"github.com/lrdgdown-eng/etiquetado/internal/version"
)

// FoodService is what the tools need from the running application
type FoodService interface {
	Calculator() *calculator.Calculator
	AddCustom(ctx context.Context, name string, values nutrients.Profile) (catalog.FoodRecord, error)
	EditCustom(ctx context.Context, name, newName string, values nutrients.Profile) (int, error)
	DeleteCustom(ctx context.Context, name string) (int, error)
	HealthCheck(ctx context.Context) error
}

// statusRecorder keeps the status code and size of an /mcp response for the debug log
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status != 0 {
		return
	}
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(data)
	r.size += n
	return n, err
}

// Flush lets streamed responses through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Server exposes the label calculator as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	app       FoodService
	auth      *auth.BearerTokenAuth
	log       *slog.Logger
	health    healthCache
}

// NewServer registers the label tools on a mark3labs MCP server
func NewServer(app FoodService, authenticator *auth.BearerTokenAuth, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"Etiquetado Nutricional",
		version.Tag(),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithLogging(),
		server.WithInstructions("Nutrition facts labels and Chilean ALTO EN warnings for foods and preparations. Food names are matched ignoring accents and case."),
	)

	s := &Server{
		mcpServer: mcpServer,
		app:       app,
		auth:      authenticator,
		log:       logger,
		health:    healthCache{ttl: healthTTL},
	}

	s.addTools()

	return s
}

func (s *Server) checkHealth(ctx context.Context) error {
	cached, err := s.health.get(ctx, s.app.HealthCheck)
	s.log.Debug("Health check", "cached", cached, "healthy", err == nil)
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := s.checkHealth(r.Context()); err != nil {
		s.log.Error("Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "healthy",
		"foods":  s.app.Calculator().Catalog().Len(),
	})
}

// Handler returns the HTTP routes: /health without auth and /mcp behind the bearer token
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)

	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("Recovered panic in /mcp", "panic", p, "method", r.Method)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		rec := &statusRecorder{ResponseWriter: w}
		streamableServer.ServeHTTP(rec, r)

		s.log.Debug("MCP request",
			"method", r.Method,
			"status", rec.status,
			"bytes", rec.size,
			"duration", time.Since(start))
	})

	mux.Handle("/mcp", s.auth.Middleware(mcpHandler, s.log))
	return mux
}

// ServeStdio serves the tools on stdin/stdout. Bearer auth does not apply.
func (s *Server) ServeStdio() error {
	s.log.Info("Serving MCP over stdio", "version", version.Tag())
	return server.ServeStdio(s.mcpServer)
}
