package limiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Dzaakk/redis-rate-limiter/limiter"

// Routine is a named Lua body the store runs atomically. Its identifier is
// the SHA-1 of the body, so every process that registers the same body
// addresses the same compiled script.
type Routine struct {
	name   string
	script *redis.Script
}

func NewRoutine(name, body string) *Routine {
	return &Routine{name: name, script: redis.NewScript(body)}
}

func (r *Routine) Name() string { return r.name }

// SHA returns the content-derived identifier used by EVALSHA.
func (r *Routine) SHA() string { return r.script.Hash() }

// Executor runs routines against the store. It tries the cached compiled form
// first and resubmits the full body once when the store has forgotten it.
type Executor struct {
	client   redis.Scripter
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
}

type ExecutorOption func(*Executor)

func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithRecorder(r Recorder) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) ExecutorOption {
	return func(e *Executor) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewExecutor accepts any go-redis client able to run scripts: *redis.Client,
// *redis.ClusterClient, *redis.Ring or a redis.UniversalClient.
func NewExecutor(client redis.Scripter, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:   client,
		logger:   slog.New(slog.DiscardHandler),
		recorder: NopRecorder{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load registers routines with the store so the first Execute of each one
// takes the EVALSHA path.
func (e *Executor) Load(ctx context.Context, routines ...*Routine) error {
	for _, r := range routines {
		if err := r.script.Load(ctx, e.client).Err(); err != nil {
			return fmt.Errorf("%w: load routine %s: %w", ErrStoreUnavailable, r.name, err)
		}
		e.logger.DebugContext(ctx, "routine loaded", "routine", r.name, "sha", r.SHA())
	}
	return nil
}

// Execute runs r with the given keys and arguments and returns its integer
// reply. A NOSCRIPT reply triggers exactly one EVAL of the full body; every
// other failure is returned wrapped in ErrStoreUnavailable.
func (e *Executor) Execute(ctx context.Context, r *Routine, keys []string, args ...interface{}) (int64, error) {
	ctx, span := e.tracer.Start(ctx, "limiter.execute", trace.WithAttributes(
		attribute.String("limiter.routine", r.name),
		attribute.StringSlice("limiter.keys", keys),
	))
	defer span.End()

	reply, err := r.script.EvalSha(ctx, e.client, keys, args...).Result()
	if err != nil && redis.HasErrorPrefix(err, "NOSCRIPT") {
		e.logger.DebugContext(ctx, "routine not cached by store, resubmitting body",
			"routine", r.name, "sha", r.SHA())
		e.recorder.ObserveReload(r.name)
		span.AddEvent("noscript")
		reply, err = r.script.Eval(ctx, e.client, keys, args...).Result()
	}
	if errors.Is(err, redis.Nil) {
		span.SetStatus(codes.Error, "nil reply")
		return 0, fmt.Errorf("%w: routine %s returned nil", ErrUnexpectedReply, r.name)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failure")
		e.logger.WarnContext(ctx, "routine execution failed", "routine", r.name, "error", err)
		return 0, fmt.Errorf("%w: routine %s: %w", ErrStoreUnavailable, r.name, err)
	}

	n, ok := reply.(int64)
	if !ok {
		span.SetStatus(codes.Error, "unexpected reply")
		return 0, fmt.Errorf("%w: routine %s returned %T", ErrUnexpectedReply, r.name, reply)
	}
	span.SetAttributes(attribute.Int64("limiter.result", n))
	return n, nil
}
