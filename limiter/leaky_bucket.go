package limiter

import (
	"context"
	"fmt"
	"time"
)

// LeakyBucket starts empty and drains leakRate units every leakPeriod. Each
// admitted attempt adds one unit; a full bucket denies.
type LeakyBucket struct {
	base
}

func NewLeakyBucket(exec *Executor, opts ...Option) *LeakyBucket {
	return &LeakyBucket{base: newBase(AlgorithmLeakyBucket, exec, opts)}
}

func (l *LeakyBucket) TryConsume(ctx context.Context, id, key string, capacity, leakRate int64, leakPeriod time.Duration) (bool, error) {
	if capacity < 1 {
		return l.reject(id)
	}
	if leakRate < 1 || leakPeriod < time.Millisecond {
		return false, fmt.Errorf("%w: leaky bucket leak %d per %s", ErrInvalidPolicy, leakRate, leakPeriod)
	}

	ttl := bucketTTL(leakPeriod, capacity, leakRate)
	keys := []string{Key(AlgorithmLeakyBucket, id, key)}
	return l.decide(ctx, id, admitted, keys,
		l.now().UnixMilli(),
		capacity,
		leakRate,
		leakPeriod.Milliseconds(),
		ttl.Milliseconds(),
	)
}
