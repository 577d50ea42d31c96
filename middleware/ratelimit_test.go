package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/upb/sop-assistant/services"
	"go.uber.org/zap"
)

func TestUserRateLimiter_Limit(t *testing.T) {
	limiter := NewUserRateLimiter(2, zap.NewNop())
	handler := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	alice, bob := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusOK, send(alice).Code)
	assert.Equal(t, http.StatusOK, send(alice).Code)

	blocked := send(alice)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "rate_limit_exceeded")
	assert.Contains(t, blocked.Body.String(), services.ErrRateLimitExceeded.Message)

	// budgets are per user
	assert.Equal(t, http.StatusOK, send(bob).Code)
}

func TestUserRateLimiter_RequiresUser(t *testing.T) {
	limiter := NewUserRateLimiter(10, zap.NewNop())
	handler := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserRateLimiter_EvictsIdleUsers(t *testing.T) {
	limiter := NewUserRateLimiter(1, zap.NewNop())
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	limiter.lastSweep = clock

	alice, bob := uuid.New(), uuid.New()
	limiter.limiterFor(alice)
	limiter.limiterFor(bob)
	assert.Equal(t, 2, limiter.size())

	// bob stays active, alice goes idle
	clock = clock.Add(limiterIdleTTL / 2)
	limiter.limiterFor(bob)

	clock = clock.Add(limiterIdleTTL / 2)
	limiter.limiterFor(bob)

	assert.Equal(t, 1, limiter.size())
	_, tracked := limiter.limiters[bob]
	assert.True(t, tracked)
}

func TestUserRateLimiter_EvictedUserGetsFreshBudget(t *testing.T) {
	limiter := NewUserRateLimiter(1, zap.NewNop())
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	limiter.lastSweep = clock

	handler := limiter.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	send := func(userID uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	alice := uuid.New()
	assert.Equal(t, http.StatusOK, send(alice))
	assert.Equal(t, http.StatusTooManyRequests, send(alice))

	clock = clock.Add(limiterIdleTTL)
	assert.Equal(t, http.StatusOK, send(alice))
	assert.Equal(t, 1, limiter.size())
}
