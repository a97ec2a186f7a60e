// Command redis-rate-limiter serves one demo endpoint per configured policy,
// each guarded by a distributed limiter backed by Redis.
//
// Usage:
//
//	# Start with the built-in policies against localhost:6379
//	redis-rate-limiter
//
//	# Start with a configuration file
//	redis-rate-limiter --config config.yaml
//
//	# Check a configuration file without connecting
//	redis-rate-limiter validate --config config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Dzaakk/redis-rate-limiter/config"
	"github.com/Dzaakk/redis-rate-limiter/internal/metrics"
	redisstore "github.com/Dzaakk/redis-rate-limiter/internal/storage/redis"
	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

var rootFlags struct {
	configFile string
	addr       string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "redis-rate-limiter",
	Short: "Serve rate limited demo endpoints backed by Redis",
	Long: `Serve one endpoint per configured policy under /rate-limiter/<policy id>.

Each request consumes one attempt for the caller under that policy. Rejected
requests get 429, accepted ones 202. All limiter state lives in Redis, so any
number of instances can share it.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration valid (%d policies)\n", len(cfg.Policies))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.configFile, "config", "c", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&rootFlags.addr, "addr", "", "override server listen address")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if rootFlags.addr != "" {
		cfg.Server.Addr = rootFlags.addr
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(reg)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Redis.DialTimeout)
	store, err := redisstore.Connect(ctx, cfg.Redis, logger, ratelimit.WithRecorder(recorder))
	cancel()
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		return err
	}
	defer store.Close()

	app, err := newServer(cfg, store, reg, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", httpServer.Addr, "policies", len(cfg.Policies))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server error", "error", err)
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
