package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Dzaakk/redis-rate-limiter/config"
	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

// RedisStore owns the Redis client and the executor that runs limiter
// routines on it.
type RedisStore struct {
	client redis.UniversalClient
	exec   *ratelimit.Executor
}

func NewRedisStore(client redis.UniversalClient, opts ...ratelimit.ExecutorOption) *RedisStore {
	return &RedisStore{
		client: client,
		exec:   ratelimit.NewExecutor(client, opts...),
	}
}

// NewClient builds a client from configuration without connecting.
func NewClient(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   cfg.MasterName,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
}

// Connect builds the client, checks it answers and preloads every limiter
// routine. The client is closed again when any step fails.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger, opts ...ratelimit.ExecutorOption) (*RedisStore, error) {
	logger.Info("connecting to Redis", "addrs", cfg.Addrs)

	client := NewClient(cfg)
	store := NewRedisStore(client, append([]ratelimit.ExecutorOption{ratelimit.WithLogger(logger)}, opts...)...)

	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := store.exec.Load(ctx, ratelimit.Routines()...); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("successfully connected to Redis", "routines", len(ratelimit.Routines()))
	return store, nil
}

func (r *RedisStore) Executor() *ratelimit.Executor {
	return r.exec
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
