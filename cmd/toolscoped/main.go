// Toolscoped serves semantic tool selection for MCP clients.
//
// It embeds a tool catalog once at startup, then ranks tools against
// conversational context over HTTP or the MCP stdio transport.
//
// Usage:
//
//	# Serve the HTTP API
//	toolscoped serve --catalog ./catalog.json
//
//	# Serve MCP over stdio
//	toolscoped mcp --catalog ./catalog.json
//
// Configuration is loaded from ~/.config/toolscope/config.yaml and
// TOOLSCOPE_* environment variables.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/toolscope/internal/catalog"
	"github.com/fyrsmithlabs/toolscope/internal/config"
	"github.com/fyrsmithlabs/toolscope/internal/embeddings"
	"github.com/fyrsmithlabs/toolscope/internal/filter"
	"github.com/fyrsmithlabs/toolscope/internal/httpapi"
	"github.com/fyrsmithlabs/toolscope/internal/logging"
	"github.com/fyrsmithlabs/toolscope/internal/mcp"
	"github.com/fyrsmithlabs/toolscope/internal/registry"
	"github.com/fyrsmithlabs/toolscope/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath  string
	catalogPath string
)

var rootCmd = &cobra.Command{
	Use:   "toolscoped",
	Short: "Semantic tool selection daemon",
	Long: `toolscoped ranks MCP tool definitions against conversational context
and serves the most relevant subset over HTTP or MCP stdio.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP over stdio",
	RunE:  runMCP,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("toolscoped by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/toolscope/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "tool catalog JSON path (overrides catalog.path from config)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by the serve and mcp commands.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	provider embeddings.Provider
	service  *filter.Service
}

// newApp loads configuration and builds the filter pipeline.
//
// Initialization order matters: telemetry first so the logger can bridge
// to OTEL, then the embedding provider, then the registry build (the one
// batch embedding pass over the catalog).
func newApp(ctx context.Context, logToStderr bool) (*app, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Stdio transports own stdout; keep logs off it
	if logToStderr && cfg.Logging.Output.Stdout {
		cfg.Logging.Output.Stdout = false
		cfg.Logging.Output.Stderr = true
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	path := catalogPath
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no tool catalog: set --catalog or catalog.path in config")
	}

	servers, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		CacheDir: cfg.Embedding.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	reg := registry.New(logger.Underlying().Named("registry"))
	if err := reg.Build(ctx, servers, provider); err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("building tool registry: %w", err)
	}

	logger.Info(ctx, "tool registry built",
		zap.String("catalog", path),
		zap.Int("tools", reg.Len()),
		zap.Int("dimensions", reg.Dimension()),
	)

	service, err := filter.NewService(reg, provider, filter.Config{
		CacheEntries: cfg.Filter.CacheEntries,
		Defaults: filter.Defaults{
			TopK:             cfg.Filter.TopK,
			MinScore:         float32(cfg.Filter.MinScore),
			ContextMessages:  cfg.Filter.ContextMessages,
			MaxContextTokens: cfg.Filter.MaxContextTokens,
		},
		Logger: logger.Underlying().Named("filter"),
	})
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("creating filter service: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		provider: provider,
		service:  service,
	}, nil
}

// close releases app resources in reverse initialization order.
func (a *app) close(ctx context.Context) {
	if err := a.provider.Close(); err != nil {
		a.logger.Warn(ctx, "embedding provider close failed", zap.Error(err))
	}
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	srv, err := httpapi.NewServer(a.service, a.logger.Underlying().Named("http"), &httpapi.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}

	a.logger.Info(ctx, "server shutdown complete")
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "toolscope",
		Version: version,
		Logger:  a.logger.Underlying().Named("mcp"),
	}, a.service)
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}

	return srv.Run(ctx)
}
