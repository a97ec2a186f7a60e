// Package limiter implements distributed rate limiting on Redis with five
// algorithms that share one atomic execution path.
//
// Every attempt is decided by a single Lua routine running inside Redis, so
// the read/compute/write cycle for a key is indivisible no matter how many
// processes hit the same resource at once. No state is kept in process
// memory.
//
// # Algorithms
//
//   - FixedWindow: counts attempts in a window that opens on the first
//     attempt for a key.
//   - TokenBucket: starts full, refills Rate tokens every Period, each
//     attempt takes one token.
//   - LeakyBucket: starts empty, drains Rate units every Period, each
//     attempt adds one unit.
//   - SlidingWindowLog: exact; one sorted-set member per admitted attempt.
//   - SlidingWindowCounter: approximate; two adjacent sub-window counters
//     with linear interpolation, constant memory per key.
//
// Each limiter exposes a TryConsume method taking the protected resource id,
// the caller key and the algorithm's parameters:
//
//	tb := limiter.NewTokenBucket(exec)
//	ok, err := tb.TryConsume(ctx, "login", clientIP, 5, 1, time.Minute)
//
// A Policy describes the same parameters declaratively and NewRule binds it
// to the right limiter:
//
//	rule, err := limiter.NewRule(exec, limiter.Policy{
//		ID:        "login",
//		Algorithm: limiter.AlgorithmTokenBucket,
//		Capacity:  5,
//		Rate:      1,
//		Period:    time.Minute,
//	})
//	ok, err := rule.Allow(ctx, clientIP)
//
// # Atomic Execution
//
// Executor runs routines with EVALSHA. When Redis answers NOSCRIPT (after a
// restart or SCRIPT FLUSH) it resubmits the full body with EVAL once, which
// also re-caches it. Executor.Load preloads all routines at startup:
//
//	exec := limiter.NewExecutor(client)
//	if err := exec.Load(ctx, limiter.Routines()...); err != nil {
//		return err
//	}
//
// # Error Policy
//
// A denied attempt is (false, nil), never an error. Store and transport
// failures are returned wrapped in ErrStoreUnavailable, and the caller
// decides whether to fail open or closed. The context passed to TryConsume
// bounds the store round trip; its error stays visible through errors.Is.
//
// A non-positive limit or capacity denies without a store call. Parameters
// no routine can run with (a zero period, rate or window) return
// ErrInvalidPolicy.
//
// # Storage Details
//
// Keys are "<algorithm>:<id>:<key>", with the sliding window counter
// appending ":<sub-window number>". Every key carries a TTL so idle callers
// cost no memory:
//
//   - fixed_window: counter, TTL = window, set on first increment
//   - token_bucket: hash {tokens, last_refill}, TTL = period × ⌊capacity/rate⌋
//   - leaky_bucket: hash {water, last_leak}, TTL = period × ⌊capacity/rate⌋
//   - sliding_window_log: sorted set, TTL = window, refreshed on admission
//   - sliding_window_counter: counter per sub-window, TTL = window + sub-window
//
// All durations reach the routines as milliseconds. The attempt timestamp is
// read once per call from the limiter's clock (see WithClock).
//
// The sliding window counter touches two keys per call, so on Redis Cluster
// both sub-window keys must hash to the same slot.
package limiter
