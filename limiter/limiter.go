package limiter

import (
	"context"
	_ "embed"
	"strconv"
	"time"
)

// Algorithm names a limiter variant. Its value is also the first segment of
// every store key the variant writes.
type Algorithm string

const (
	AlgorithmFixedWindow          Algorithm = "fixed_window"
	AlgorithmTokenBucket          Algorithm = "token_bucket"
	AlgorithmLeakyBucket          Algorithm = "leaky_bucket"
	AlgorithmSlidingWindowLog     Algorithm = "sliding_window_log"
	AlgorithmSlidingWindowCounter Algorithm = "sliding_window_counter"
)

// Algorithms lists every supported variant.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmFixedWindow,
		AlgorithmTokenBucket,
		AlgorithmLeakyBucket,
		AlgorithmSlidingWindowLog,
		AlgorithmSlidingWindowCounter,
	}
}

func (a Algorithm) Valid() bool {
	_, ok := routines[a]
	return ok
}

var (
	//go:embed scripts/fixed_window.lua
	fixedWindowScript string
	//go:embed scripts/token_bucket.lua
	tokenBucketScript string
	//go:embed scripts/leaky_bucket.lua
	leakyBucketScript string
	//go:embed scripts/sliding_window_log.lua
	slidingWindowLogScript string
	//go:embed scripts/sliding_window_counter.lua
	slidingWindowCounterScript string
)

var routines = map[Algorithm]*Routine{
	AlgorithmFixedWindow:          NewRoutine(string(AlgorithmFixedWindow), fixedWindowScript),
	AlgorithmTokenBucket:          NewRoutine(string(AlgorithmTokenBucket), tokenBucketScript),
	AlgorithmLeakyBucket:          NewRoutine(string(AlgorithmLeakyBucket), leakyBucketScript),
	AlgorithmSlidingWindowLog:     NewRoutine(string(AlgorithmSlidingWindowLog), slidingWindowLogScript),
	AlgorithmSlidingWindowCounter: NewRoutine(string(AlgorithmSlidingWindowCounter), slidingWindowCounterScript),
}

// Routines returns the routine of every algorithm, for preloading with
// Executor.Load at startup.
func Routines() []*Routine {
	out := make([]*Routine, 0, len(routines))
	for _, a := range Algorithms() {
		out = append(out, routines[a])
	}
	return out
}

// RoutineFor returns the routine backing alg, or nil for an unknown algorithm.
func RoutineFor(alg Algorithm) *Routine {
	return routines[alg]
}

// Key builds the store key "<algorithm>:<id>:<key>".
func Key(alg Algorithm, id, key string) string {
	return string(alg) + ":" + id + ":" + key
}

func subWindowKey(id, key string, n int64) string {
	return Key(AlgorithmSlidingWindowCounter, id, key) + ":" + strconv.FormatInt(n, 10)
}

// Option configures a limiter.
type Option func(*base)

// WithClock replaces time.Now as the source of the attempt timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// base holds what every variant shares: the executor and the clock.
type base struct {
	alg  Algorithm
	exec *Executor
	now  func() time.Time
}

func newBase(alg Algorithm, exec *Executor, opts []Option) base {
	b := base{alg: alg, exec: exec, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// decide executes the variant's routine, maps its reply through admit and
// reports the outcome to the recorder.
func (b *base) decide(ctx context.Context, id string, admit func(int64) bool, keys []string, args ...interface{}) (bool, error) {
	start := time.Now()
	n, err := b.exec.Execute(ctx, routines[b.alg], keys, args...)
	if err != nil {
		b.exec.recorder.ObserveError(b.alg, id)
		return false, err
	}
	allowed := admit(n)
	b.exec.recorder.ObserveDecision(b.alg, id, allowed, time.Since(start))
	return allowed, nil
}

// reject records a guard rejection that never reached the store.
func (b *base) reject(id string) (bool, error) {
	b.exec.recorder.ObserveDecision(b.alg, id, false, 0)
	return false, nil
}

// bucketTTL is period × floor(capacity/rate). When rate exceeds capacity the
// quotient is zero and one period is used instead, since a zero expiry would
// drop the state on write.
func bucketTTL(period time.Duration, capacity, rate int64) time.Duration {
	n := capacity / rate
	if n < 1 {
		n = 1
	}
	return period * time.Duration(n)
}
