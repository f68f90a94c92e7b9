package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/api/responses"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

// CartRateLimitPolicy defines the fixed-window limits for cart mutations.
type CartRateLimitPolicy struct {
	window       time.Duration
	sessionLimit int
	ipLimit      int
}

// NewCartRateLimitPolicy builds a policy; a zero limit disables its bucket.
func NewCartRateLimitPolicy(window time.Duration, sessionLimit, ipLimit int) CartRateLimitPolicy {
	return CartRateLimitPolicy{
		window:       window,
		sessionLimit: sessionLimit,
		ipLimit:      ipLimit,
	}
}

func (p CartRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.sessionLimit > 0 || p.ipLimit > 0)
}

type rateBucket struct {
	scope string
	kind  string
	limit int
}

func (p CartRateLimitPolicy) buckets(r *http.Request) []rateBucket {
	var out []rateBucket
	if p.sessionLimit > 0 {
		if id := SessionIDFromContext(r.Context()); id != "" {
			out = append(out, rateBucket{scope: "cart:session:" + id, kind: "session", limit: p.sessionLimit})
		}
	}
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, rateBucket{scope: "cart:ip:" + ip, kind: "ip", limit: p.ipLimit})
		}
	}
	return out
}

// CartRateLimit throttles mutating cart requests per session and per client
// IP. Reads pass through. Redis errors fail open.
func CartRateLimit(policy CartRateLimitPolicy, store pkgredis.RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			for _, bucket := range policy.buckets(r) {
				allowed, count, err := store.FixedWindowAllow(ctx, bucket.scope, int64(bucket.limit), policy.window)
				if err != nil {
					logWarn(ctx, logg, "cart.rate_limit.unavailable", err)
					break
				}
				if !allowed {
					respondRateLimited(ctx, logg, w, store, policy, bucket, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store pkgredis.RateLimitStore, policy CartRateLimitPolicy, bucket rateBucket, count int64) {
	wait, err := store.RetryAfter(ctx, bucket.scope)
	if err != nil || wait <= 0 {
		wait = policy.window
	}
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          bucket.kind,
			"attempts":       count,
			"limit":          bucket.limit,
			"window_seconds": int(policy.window.Seconds()),
			"retry_after":    seconds,
		})
		logg.Warn(logCtx, "cart.rate_limit.blocked")
	}

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimited, "too many cart updates, please slow down"))
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
