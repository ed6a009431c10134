package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/quill/api"
	"github.com/ashita-ai/quill/internal/mcp"
	"github.com/ashita-ai/quill/internal/ratelimit"
	"github.com/ashita-ai/quill/internal/server"
	"github.com/ashita-ai/quill/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and MCP API",
	Long: `Serve the article generation API.

Routes:
  POST /v1/articles          buffered generation (JSON)
  POST /v1/articles/stream   streaming generation (server-sent events)
  GET  /v1/keywords          keyword suggestions or related keywords
  GET  /v1/providers         configured generation backends
  GET  /health               liveness and configuration summary
  GET  /openapi.yaml         API document
  /mcp                       MCP streamable HTTP endpoint

Configuration comes from the environment (and an optional .env file or
QUILL_CONFIG YAML file). At least one of ANTHROPIC_API_KEY, OPENAI_API_KEY
or GEMINI_API_KEY must be set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, true)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("quill starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTEL.Endpoint,
		ServiceName: cfg.OTEL.ServiceName,
		Version:     version,
		Insecure:    cfg.OTEL.Insecure,
		SampleRatio: cfg.OTEL.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("generation providers ready",
		"providers", svc.Providers().Names(), "default", svc.Providers().Default())

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}
	defer func() { _ = limiter.Close() }()

	mcpSrv := mcp.New(svc, logger, version)

	srv := server.New(server.ServerConfig{
		Generation:          svc,
		Logger:              logger,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         api.OpenAPISpec,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("quill shutting down")
		// In-flight streams get the shutdown budget to finish; after that
		// their connections are closed and the runs are cancelled.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("quill stopped")
	return nil
}
