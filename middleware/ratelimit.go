package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/sop-assistant/services"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused bucket is kept. It is well past the
// one minute a bucket needs to refill, so an evicted user starts with the
// same budget they would have had.
const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter keeps one token bucket per authenticated user
type UserRateLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[uuid.UUID]*userLimiter
	lastSweep time.Time
	now       func() time.Time

	logger *zap.Logger
}

// NewUserRateLimiter allows perMinute requests per user per minute, with
// bursts of up to perMinute requests
func NewUserRateLimiter(perMinute int, logger *zap.Logger) *UserRateLimiter {
	return &UserRateLimiter{
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		limiters:  make(map[uuid.UUID]*userLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

func (l *UserRateLimiter) limiterFor(userID uuid.UUID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.evictIdle(now)
	}

	entry, ok := l.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdle drops buckets unused for limiterIdleTTL. Caller holds l.mu.
func (l *UserRateLimiter) evictIdle(now time.Time) {
	for userID, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, userID)
		}
	}
	l.lastSweep = now
}

// size reports the number of tracked users
func (l *UserRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Limit is a middleware rejecting requests over the user's budget with 429.
// It must run after RequireAuth.
func (l *UserRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		userID, ok := GetUserIDFromContext(ctx)
		if !ok {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		now := l.now()
		reservation := l.limiterFor(userID).ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			retryAfter := int(math.Ceil(delay.Seconds()))

			l.logger.Warn("request blocked by rate limit",
				zap.String("request_id", requestID),
				zap.String("user_id", userID.String()),
				zap.Duration("retry_after", delay))

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			_ = utils.WriteTooManyRequests(w, services.ErrRateLimitExceeded.Message, map[string]interface{}{
				"window":      "minute",
				"retry_after": retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
