package limiter

import (
	"context"
	"fmt"
	"time"
)

// FixedWindow counts attempts in a window that opens on the first attempt
// for a key and closes when the counter expires.
type FixedWindow struct {
	base
}

func NewFixedWindow(exec *Executor, opts ...Option) *FixedWindow {
	return &FixedWindow{base: newBase(AlgorithmFixedWindow, exec, opts)}
}

// TryConsume admits the attempt when it is among the first limit attempts of
// the current window. Denied attempts are still counted.
func (f *FixedWindow) TryConsume(ctx context.Context, id, key string, limit int64, window time.Duration) (bool, error) {
	if limit <= 0 {
		return f.reject(id)
	}
	if window < time.Millisecond {
		return false, fmt.Errorf("%w: fixed window length %s", ErrInvalidPolicy, window)
	}

	keys := []string{Key(AlgorithmFixedWindow, id, key)}
	return f.decide(ctx, id, func(count int64) bool {
		return count <= limit
	}, keys, window.Milliseconds())
}
