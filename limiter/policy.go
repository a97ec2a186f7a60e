package limiter

import (
	"context"
	"fmt"
	"time"
)

// Policy is the declarative form of one limiter: which algorithm guards the
// resource ID and with which parameters. Only the fields of the chosen
// algorithm are read.
type Policy struct {
	ID        string        `yaml:"id"`
	Algorithm Algorithm     `yaml:"algorithm"`
	Limit     int64         `yaml:"limit,omitempty"`
	Capacity  int64         `yaml:"capacity,omitempty"`
	Rate      int64         `yaml:"rate,omitempty"`
	Period    time.Duration `yaml:"period,omitempty"`
	Window    time.Duration `yaml:"window,omitempty"`
	SubWindow time.Duration `yaml:"sub_window,omitempty"`
}

// Validate checks the structural parameters. A non-positive limit or capacity
// is valid: such a policy denies every attempt.
func (p Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPolicy)
	}

	switch p.Algorithm {
	case AlgorithmFixedWindow, AlgorithmSlidingWindowLog:
		if p.Window < time.Millisecond {
			return fmt.Errorf("%w: %s: window must be at least 1ms", ErrInvalidPolicy, p.ID)
		}
	case AlgorithmTokenBucket, AlgorithmLeakyBucket:
		if p.Rate < 1 {
			return fmt.Errorf("%w: %s: rate must be positive", ErrInvalidPolicy, p.ID)
		}
		if p.Period < time.Millisecond {
			return fmt.Errorf("%w: %s: period must be at least 1ms", ErrInvalidPolicy, p.ID)
		}
	case AlgorithmSlidingWindowCounter:
		if p.Window < time.Millisecond || p.SubWindow < time.Millisecond {
			return fmt.Errorf("%w: %s: window and sub_window must be at least 1ms", ErrInvalidPolicy, p.ID)
		}
		if p.SubWindow > p.Window {
			return fmt.Errorf("%w: %s: sub_window %s exceeds window %s", ErrInvalidPolicy, p.ID, p.SubWindow, p.Window)
		}
	default:
		return fmt.Errorf("%w: %s: unknown algorithm %q", ErrInvalidPolicy, p.ID, p.Algorithm)
	}
	return nil
}

// Rule is a policy bound to its limiter. Allow is TryConsume with the
// policy's parameters filled in.
type Rule interface {
	Allow(ctx context.Context, key string) (bool, error)
	Policy() Policy
}

// NewRule validates p and binds it to the limiter of its algorithm.
func NewRule(exec *Executor, p Policy, opts ...Option) (Rule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Algorithm {
	case AlgorithmFixedWindow:
		return &fixedWindowRule{p: p, l: NewFixedWindow(exec, opts...)}, nil
	case AlgorithmTokenBucket:
		return &tokenBucketRule{p: p, l: NewTokenBucket(exec, opts...)}, nil
	case AlgorithmLeakyBucket:
		return &leakyBucketRule{p: p, l: NewLeakyBucket(exec, opts...)}, nil
	case AlgorithmSlidingWindowLog:
		return &slidingWindowLogRule{p: p, l: NewSlidingWindowLog(exec, opts...)}, nil
	default:
		return &slidingWindowCounterRule{p: p, l: NewSlidingWindowCounter(exec, opts...)}, nil
	}
}

type fixedWindowRule struct {
	p Policy
	l *FixedWindow
}

func (r *fixedWindowRule) Allow(ctx context.Context, key string) (bool, error) {
	return r.l.TryConsume(ctx, r.p.ID, key, r.p.Limit, r.p.Window)
}

func (r *fixedWindowRule) Policy() Policy { return r.p }

type tokenBucketRule struct {
	p Policy
	l *TokenBucket
}

func (r *tokenBucketRule) Allow(ctx context.Context, key string) (bool, error) {
	return r.l.TryConsume(ctx, r.p.ID, key, r.p.Capacity, r.p.Rate, r.p.Period)
}

func (r *tokenBucketRule) Policy() Policy { return r.p }

type leakyBucketRule struct {
	p Policy
	l *LeakyBucket
}

func (r *leakyBucketRule) Allow(ctx context.Context, key string) (bool, error) {
	return r.l.TryConsume(ctx, r.p.ID, key, r.p.Capacity, r.p.Rate, r.p.Period)
}

func (r *leakyBucketRule) Policy() Policy { return r.p }

type slidingWindowLogRule struct {
	p Policy
	l *SlidingWindowLog
}

func (r *slidingWindowLogRule) Allow(ctx context.Context, key string) (bool, error) {
	return r.l.TryConsume(ctx, r.p.ID, key, r.p.Limit, r.p.Window)
}

func (r *slidingWindowLogRule) Policy() Policy { return r.p }

type slidingWindowCounterRule struct {
	p Policy
	l *SlidingWindowCounter
}

func (r *slidingWindowCounterRule) Allow(ctx context.Context, key string) (bool, error) {
	return r.l.TryConsume(ctx, r.p.ID, key, r.p.Limit, r.p.Window, r.p.SubWindow)
}

func (r *slidingWindowCounterRule) Policy() Policy { return r.p }
