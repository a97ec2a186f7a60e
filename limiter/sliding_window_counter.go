package limiter

import (
	"context"
	"fmt"
	"time"
)

// SlidingWindowCounter approximates a sliding window from two adjacent
// sub-window counters. The previous counter is weighted by the fraction of
// the current sub-window that has not elapsed yet.
type SlidingWindowCounter struct {
	base
}

func NewSlidingWindowCounter(exec *Executor, opts ...Option) *SlidingWindowCounter {
	return &SlidingWindowCounter{base: newBase(AlgorithmSlidingWindowCounter, exec, opts)}
}

func (s *SlidingWindowCounter) TryConsume(ctx context.Context, id, key string, limit int64, window, subWindow time.Duration) (bool, error) {
	if limit <= 0 {
		return s.reject(id)
	}
	if window < time.Millisecond || subWindow < time.Millisecond {
		return false, fmt.Errorf("%w: sliding counter window %s, sub-window %s", ErrInvalidPolicy, window, subWindow)
	}

	now := s.now().UnixMilli()
	sub := subWindow.Milliseconds()
	current := now / sub

	// A counter must outlive its own sub-window by a whole window so the next
	// sub-window can still read it as "previous".
	ttl := window + subWindow

	keys := []string{
		subWindowKey(id, key, current),
		subWindowKey(id, key, current-1),
	}
	return s.decide(ctx, id, admitted, keys, now, sub, limit, ttl.Milliseconds())
}
