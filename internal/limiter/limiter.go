package limiter

import (
	"context"
	"errors"
	"fmt"
	"sort"

	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

var ErrUnknownPolicy = errors.New("unknown rate limit policy")

// Limiter resolves a policy id to its bound rule.
type Limiter struct {
	rules map[string]ratelimit.Rule
}

func NewLimiter(exec *ratelimit.Executor, policies []ratelimit.Policy, opts ...ratelimit.Option) (*Limiter, error) {
	rules := make(map[string]ratelimit.Rule, len(policies))
	for _, p := range policies {
		if _, dup := rules[p.ID]; dup {
			return nil, fmt.Errorf("duplicate policy id %q", p.ID)
		}
		rule, err := ratelimit.NewRule(exec, p, opts...)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", p.ID, err)
		}
		rules[p.ID] = rule
	}
	return &Limiter{rules: rules}, nil
}

// Allow consumes one attempt for key under the policy policyID.
func (l *Limiter) Allow(ctx context.Context, policyID, key string) (bool, error) {
	rule, ok := l.rules[policyID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPolicy, policyID)
	}
	return rule.Allow(ctx, key)
}

func (l *Limiter) Policy(id string) (ratelimit.Policy, bool) {
	rule, ok := l.rules[id]
	if !ok {
		return ratelimit.Policy{}, false
	}
	return rule.Policy(), true
}

// Policies returns every configured policy ordered by id.
func (l *Limiter) Policies() []ratelimit.Policy {
	out := make([]ratelimit.Policy, 0, len(l.rules))
	for _, rule := range l.rules {
		out = append(out, rule.Policy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
