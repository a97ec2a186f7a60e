package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

// PolicyLimiter is the part of internal/limiter.Limiter the middleware needs.
type PolicyLimiter interface {
	Allow(ctx context.Context, policyID, key string) (bool, error)
	Policy(id string) (ratelimit.Policy, bool)
}

// KeyFunc extracts the caller key a request is limited by.
type KeyFunc func(r *http.Request) string

// RemoteAddrKey keys requests by client IP.
func RemoteAddrKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HeaderKey keys requests by the value of header name, falling back to
// fallback when the header is absent.
func HeaderKey(name string, fallback KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		if v := r.Header.Get(name); v != "" {
			return v
		}
		return fallback(r)
	}
}

type RateLimitMiddleware struct {
	limiter  PolicyLimiter
	logger   *slog.Logger
	failOpen bool
}

type Option func(*RateLimitMiddleware)

// WithFailOpen lets requests through when the store cannot be reached.
func WithFailOpen(failOpen bool) Option {
	return func(m *RateLimitMiddleware) {
		m.failOpen = failOpen
	}
}

func NewRateLimitMiddleware(l PolicyLimiter, logger *slog.Logger, opts ...Option) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		limiter: l,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler guards next with the policy policyID, keyed by keyFn.
func (m *RateLimitMiddleware) Handler(policyID string, keyFn KeyFunc, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := keyFn(r)

		allowed, err := m.limiter.Allow(r.Context(), policyID, key)
		if err != nil {
			if errors.Is(err, ratelimit.ErrStoreUnavailable) {
				if m.failOpen {
					m.logger.Warn("rate limiter unavailable, allowing request",
						"policy", policyID,
						"client", key,
						"error", err,
					)
					next(w, r)
					return
				}
				m.logger.Error("rate limiter unavailable", "policy", policyID, "client", key, "error", err)
				m.sendError(w, http.StatusServiceUnavailable, "Rate limiter unavailable")
				return
			}

			m.logger.Error("rate limiter error", "policy", policyID, "client", key, "error", err)
			m.sendError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		m.setRateLimitHeaders(w, policyID)

		if !allowed {
			m.logger.Warn("rate limit exceeded",
				"policy", policyID,
				"client", key,
				"path", r.URL.Path,
			)
			m.sendError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		m.logger.Debug("request allowed",
			"policy", policyID,
			"client", key,
			"path", r.URL.Path,
		)

		next(w, r)
	}
}

func (m *RateLimitMiddleware) setRateLimitHeaders(w http.ResponseWriter, policyID string) {
	w.Header().Set("X-RateLimit-Policy", policyID)
	if p, ok := m.limiter.Policy(policyID); ok {
		w.Header().Set("X-RateLimit-Algorithm", string(p.Algorithm))
	}
}

func (m *RateLimitMiddleware) sendError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		m.logger.Error("failed to write response", "error", err)
	}
}
