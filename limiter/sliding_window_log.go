package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlidingWindowLog keeps one sorted-set member per admitted attempt, scored
// by its timestamp, and counts the members younger than the window.
type SlidingWindowLog struct {
	base
	member func() string
}

func NewSlidingWindowLog(exec *Executor, opts ...Option) *SlidingWindowLog {
	return &SlidingWindowLog{
		base:   newBase(AlgorithmSlidingWindowLog, exec, opts),
		member: uuid.NewString,
	}
}

func (s *SlidingWindowLog) TryConsume(ctx context.Context, id, key string, limit int64, window time.Duration) (bool, error) {
	if limit < 1 {
		return s.reject(id)
	}
	if window < time.Millisecond {
		return false, fmt.Errorf("%w: sliding log window %s", ErrInvalidPolicy, window)
	}

	// Members must be unique: two admissions in the same millisecond share a
	// score and would otherwise collapse into one entry.
	keys := []string{Key(AlgorithmSlidingWindowLog, id, key)}
	return s.decide(ctx, id, admitted, keys,
		s.now().UnixMilli(),
		window.Milliseconds(),
		limit,
		s.member(),
	)
}
