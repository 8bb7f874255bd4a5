package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/quietriver/insighthub/internal/httpx"
	"github.com/redis/go-redis/v9"
)

// limiterClient is the subset of the Redis API the limiter uses.
type limiterClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// AuthRateLimit bounds requests to the credential and recovery endpoints with
// a Redis fixed window keyed by client IP and path. Redis errors fail open:
// losing the limiter must not take down sign-in.
func AuthRateLimit(rdb limiterClient, logger *slog.Logger, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/auth/") {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s:%s", r.RemoteAddr, r.URL.Path)
			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Warn("rate limiter unavailable, failing open", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			// The window opens on the first hit and closes when the TTL
			// lapses. Refreshing it on later hits would let steady sub-limit
			// traffic accumulate into a lockout.
			if count == 1 {
				if err := rdb.Expire(r.Context(), key, window).Err(); err != nil {
					logger.Warn("rate limiter expire failed", "error", err)
				}
			}

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				p := &httpx.Problem{
					Type:      "urn:problem:identity/err-rate-limited",
					Title:     http.StatusText(http.StatusTooManyRequests),
					Status:    http.StatusTooManyRequests,
					Detail:    "too many requests, please slow down",
					Code:      "ErrRateLimited",
					RequestID: chimw.GetReqID(r.Context()),
				}
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(p.GetStatus())
				_ = json.NewEncoder(w).Encode(p)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
