package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dzaakk/redis-rate-limiter/internal/limiter"
	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

type mockLimiter struct {
	mu      sync.Mutex
	allowed bool
	err     error
	calls   []string
}

func (m *mockLimiter) Allow(_ context.Context, policyID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, policyID+"/"+key)
	return m.allowed, m.err
}

func (m *mockLimiter) Policy(id string) (ratelimit.Policy, bool) {
	if id != "login" {
		return ratelimit.Policy{}, false
	}
	return ratelimit.Policy{ID: id, Algorithm: ratelimit.AlgorithmTokenBucket}, true
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusAccepted)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestRemoteAddrKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:54321"
	assert.Equal(t, "10.1.2.3", RemoteAddrKey(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", RemoteAddrKey(req))
}

func TestHeaderKey(t *testing.T) {
	keyFn := HeaderKey("X-Client-ID", RemoteAddrKey)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:54321"
	assert.Equal(t, "10.1.2.3", keyFn(req))

	req.Header.Set("X-Client-ID", "client-1")
	assert.Equal(t, "client-1", keyFn(req))
}

func TestRateLimitMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name       string
		allowed    bool
		err        error
		failOpen   bool
		wantCalled bool
		wantStatus int
		wantError  string
	}{
		{
			name:       "allowed",
			allowed:    true,
			wantCalled: true,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "denied",
			wantStatus: http.StatusTooManyRequests,
			wantError:  "Rate limit exceeded",
		},
		{
			name:       "store unavailable fails closed",
			err:        fmt.Errorf("%w: connection refused", ratelimit.ErrStoreUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Rate limiter unavailable",
		},
		{
			name:       "store unavailable fails open",
			err:        fmt.Errorf("%w: connection refused", ratelimit.ErrStoreUnavailable),
			failOpen:   true,
			wantCalled: true,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "unknown policy",
			err:        limiter.ErrUnknownPolicy,
			failOpen:   true,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal Server Error",
		},
		{
			name:       "unexpected reply",
			err:        ratelimit.ErrUnexpectedReply,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ml := &mockLimiter{allowed: tt.allowed, err: tt.err}
			mw := NewRateLimitMiddleware(ml, newTestLogger(), WithFailOpen(tt.failOpen))

			called := false
			req := httptest.NewRequest(http.MethodGet, "/rate-limiter/login", nil)
			req.RemoteAddr = "192.0.2.7:1234"
			rec := httptest.NewRecorder()

			mw.Handler("login", RemoteAddrKey, okHandler(&called))(rec, req)

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, []string{"login/192.0.2.7"}, ml.calls)
			if tt.wantError != "" {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Equal(t, tt.wantError, decodeError(t, rec))
			}
		})
	}
}

func TestRateLimitMiddleware_Headers(t *testing.T) {
	ml := &mockLimiter{allowed: false}
	mw := NewRateLimitMiddleware(ml, newTestLogger())

	called := false
	rec := httptest.NewRecorder()
	mw.Handler("login", RemoteAddrKey, okHandler(&called))(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "login", rec.Header().Get("X-RateLimit-Policy"))
	assert.Equal(t, "token_bucket", rec.Header().Get("X-RateLimit-Algorithm"))
}

func TestRateLimitMiddleware_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := limiter.NewLimiter(ratelimit.NewExecutor(client), []ratelimit.Policy{
		{ID: "fixed-window", Algorithm: ratelimit.AlgorithmFixedWindow, Limit: 2, Window: time.Minute},
	})
	require.NoError(t, err)

	mw := NewRateLimitMiddleware(l, newTestLogger())
	h := mw.Handler("fixed-window", HeaderKey("X-Client-ID", RemoteAddrKey), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	do := func(caller string) int {
		req := httptest.NewRequest(http.MethodGet, "/rate-limiter/fixed-window", nil)
		req.Header.Set("X-Client-ID", caller)
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusAccepted, do("a"))
	assert.Equal(t, http.StatusAccepted, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusAccepted, do("b"))

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, do("c"))
}

func TestRateLimitMiddleware_Concurrent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := limiter.NewLimiter(ratelimit.NewExecutor(client), []ratelimit.Policy{
		{ID: "sliding-window-log", Algorithm: ratelimit.AlgorithmSlidingWindowLog, Limit: 10, Window: time.Minute},
	})
	require.NoError(t, err)

	mw := NewRateLimitMiddleware(l, newTestLogger())
	h := mw.Handler("sliding-window-log", RemoteAddrKey, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	const n = 50
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodGet, "/rate-limiter/sliding-window-log", nil)
			rec := httptest.NewRecorder()
			h(rec, req)
			results <- rec.Code
		}()
	}

	codes := make(map[int]int)
	for i := 0; i < n; i++ {
		codes[<-results]++
	}
	assert.Equal(t, 10, codes[http.StatusAccepted])
	assert.Equal(t, n-10, codes[http.StatusTooManyRequests])
}

var _ PolicyLimiter = (*limiter.Limiter)(nil)
