package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diagnosis/estate-listings/pkg/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTokens(t *testing.T, now time.Time) *auth.TokenManager {
	t.Helper()
	m, err := auth.NewTokenManager(testSecret)
	require.NoError(t, err)
	return m.WithClock(func() time.Time { return now })
}

func identityEcho(t *testing.T, got *auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := Identity(r.Context())
		require.True(t, ok)
		*got = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAdmin(t *testing.T) {
	now := time.Now()
	tokens := newTokens(t, now)

	admin, err := tokens.Issue("admin-1", true)
	require.NoError(t, err)
	user, err := tokens.Issue("user-1", false)
	require.NoError(t, err)
	expired, err := newTokens(t, now.Add(-25*time.Hour)).Issue("admin-1", true)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + admin, http.StatusUnauthorized},
		{"missing token", "Bearer", http.StatusUnauthorized},
		{"extra parts", "Bearer " + admin + " extra", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"expired admin", "Bearer " + expired, http.StatusUnauthorized},
		{"non-admin", "Bearer " + user, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
		{"lowercase scheme", "bearer " + admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got auth.Identity
			h := NewGuard(tokens).RequireAdmin(identityEcho(t, &got))

			req := httptest.NewRequest(http.MethodPost, "/admin/properties", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
			}
			if tt.status == http.StatusOK {
				assert.Equal(t, auth.Identity{UserID: "admin-1", IsAdmin: true}, got)
			}
		})
	}
}

func TestRequireAuth_AllowsNonAdmin(t *testing.T) {
	tokens := newTokens(t, time.Now())
	tok, err := tokens.Issue("user-1", false)
	require.NoError(t, err)

	var got auth.Identity
	h := NewGuard(tokens).RequireAuth(identityEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-1", got.UserID)
	assert.False(t, got.IsAdmin)
}

func TestIdentity_Absent(t *testing.T) {
	_, ok := Identity(context.Background())
	assert.False(t, ok)
}

func TestMemoryLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter(RateLimitConfig{Requests: 2, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok, "tokens refill over the window")
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func TestRateLimit_Middleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	deny := &stubLimiter{allow: false}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 203.0.113.7")
	RateLimit(deny, "login", time.Minute, true)(ok).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, []string{"login:ip:203.0.113.7"}, deny.keys)

	broken := &stubLimiter{allow: true, err: errors.New("redis down")}
	rr = httptest.NewRecorder()
	RateLimit(broken, "login", time.Minute, false)(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	l := NewRedisLimiter(client, RateLimitConfig{Requests: 1, Window: time.Minute})
	ok, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_NonPositiveWindowDoesNotPanic(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	l := NewRedisLimiter(client, RateLimitConfig{Requests: 5, Window: 0})
	var (
		ok  bool
		err error
	)
	require.NotPanics(t, func() { ok, err = l.Allow(context.Background(), "k") })
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req, true))

	req.Header.Set("X-Forwarded-For", "198.51.100.66, 203.0.113.9")
	assert.Equal(t, "203.0.113.9", getClientIP(req, true))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", getClientIP(req, true))

	req.Header.Set("X-Real-IP", "not-an-ip")
	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.0.2.1", getClientIP(req, true))
}

func TestGetClientIP_IgnoresForwardingHeadersByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "192.0.2.1", getClientIP(req, false))
}

func TestRateLimit_SpoofedHeadersShareOneBucket(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	limiter := NewMemoryLimiter(RateLimitConfig{Requests: 2, Window: time.Minute})
	h := RateLimit(limiter, "auth", time.Minute, false)(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
