package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dzaakk/redis-rate-limiter/config"
	"github.com/Dzaakk/redis-rate-limiter/internal/handler"
	"github.com/Dzaakk/redis-rate-limiter/internal/limiter"
	"github.com/Dzaakk/redis-rate-limiter/internal/middleware"
	redisstore "github.com/Dzaakk/redis-rate-limiter/internal/storage/redis"
)

// newServer wires the limiter, middleware and handlers onto one mux.
func newServer(cfg *config.Config, store *redisstore.RedisStore, reg *prometheus.Registry, logger *slog.Logger) (http.Handler, error) {
	l, err := limiter.NewLimiter(store.Executor(), cfg.Policies)
	if err != nil {
		return nil, fmt.Errorf("failed to build limiter: %w", err)
	}

	keyFn := middleware.RemoteAddrKey
	if cfg.Middleware.KeyHeader != "" {
		keyFn = middleware.HeaderKey(cfg.Middleware.KeyHeader, middleware.RemoteAddrKey)
	}
	rateLimitMW := middleware.NewRateLimitMiddleware(l, logger, middleware.WithFailOpen(cfg.Middleware.FailOpen))

	mux := http.NewServeMux()
	for _, p := range l.Policies() {
		mux.HandleFunc("GET "+handler.PolicyPath(p.ID), rateLimitMW.Handler(p.ID, keyFn, handler.AcceptedHandler))
		logger.Debug("registered policy", "policy", p.ID, "algorithm", p.Algorithm, "path", handler.PolicyPath(p.ID))
	}
	mux.HandleFunc("GET /api/status", handler.StatusHandler(l))
	mux.HandleFunc("GET /healthz", handler.HealthHandler(store))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return mux, nil
}
