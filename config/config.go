package config

import (
	"errors"
	"fmt"
	"time"

	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Redis      RedisConfig        `yaml:"redis"`
	Log        LogConfig          `yaml:"log"`
	Middleware MiddlewareConfig   `yaml:"middleware"`
	Policies   []ratelimit.Policy `yaml:"policies"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig maps onto redis.UniversalOptions: one address gives a single
// node, several give a cluster, and MasterName selects Sentinel.
type RedisConfig struct {
	Addrs        []string      `yaml:"addrs"`
	MasterName   string        `yaml:"master_name"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MiddlewareConfig struct {
	// FailOpen lets requests through when the store is unreachable.
	FailOpen bool `yaml:"fail_open"`
	// KeyHeader names the request header holding the caller key. Empty means
	// the client address.
	KeyHeader string `yaml:"key_header"`
}

// DefaultPolicies guard the demo endpoints, one per algorithm.
var DefaultPolicies = []ratelimit.Policy{
	{ID: "token-bucket", Algorithm: ratelimit.AlgorithmTokenBucket, Capacity: 3, Rate: 1, Period: 5 * time.Second},
	{ID: "leaky-bucket", Algorithm: ratelimit.AlgorithmLeakyBucket, Capacity: 3, Rate: 1, Period: 5 * time.Second},
	{ID: "fixed-window", Algorithm: ratelimit.AlgorithmFixedWindow, Limit: 3, Window: 10 * time.Second},
	{ID: "sliding-window-log", Algorithm: ratelimit.AlgorithmSlidingWindowLog, Limit: 3, Window: 10 * time.Second},
	{ID: "sliding-window-counter", Algorithm: ratelimit.AlgorithmSlidingWindowCounter, Limit: 3, Window: 10 * time.Second, SubWindow: time.Second},
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Policies: append([]ratelimit.Policy(nil), DefaultPolicies...),
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero field that has a default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if len(cfg.Redis.Addrs) == 0 {
		cfg.Redis.Addrs = []string{"localhost:6379"}
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate reports every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if len(cfg.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("redis.addrs is required"))
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", cfg.Redis.DB))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", cfg.Log.Format))
	}

	if len(cfg.Policies) == 0 {
		errs = append(errs, errors.New("at least one policy is required"))
	}
	seen := make(map[string]bool, len(cfg.Policies))
	for i, p := range cfg.Policies {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("policies[%d]: %w", i, err))
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("policies[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
	}

	return errors.Join(errs...)
}
