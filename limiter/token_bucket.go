package limiter

import (
	"context"
	"fmt"
	"time"
)

// TokenBucket starts full at capacity and gains refillRate tokens every
// refillPeriod. Each admitted attempt takes one token.
type TokenBucket struct {
	base
}

func NewTokenBucket(exec *Executor, opts ...Option) *TokenBucket {
	return &TokenBucket{base: newBase(AlgorithmTokenBucket, exec, opts)}
}

func (t *TokenBucket) TryConsume(ctx context.Context, id, key string, capacity, refillRate int64, refillPeriod time.Duration) (bool, error) {
	if capacity < 1 {
		return t.reject(id)
	}
	if refillRate < 1 || refillPeriod < time.Millisecond {
		return false, fmt.Errorf("%w: token bucket refill %d per %s", ErrInvalidPolicy, refillRate, refillPeriod)
	}

	ttl := bucketTTL(refillPeriod, capacity, refillRate)
	keys := []string{Key(AlgorithmTokenBucket, id, key)}
	return t.decide(ctx, id, admitted, keys,
		t.now().UnixMilli(),
		capacity,
		refillRate,
		refillPeriod.Milliseconds(),
		ttl.Milliseconds(),
	)
}

func admitted(n int64) bool { return n == 1 }
