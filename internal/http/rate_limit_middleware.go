package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimiter decides whether a keyed caller may proceed. Limits and windows are per
// call so one limiter can serve every route.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

// rateDecision carries the outcome and the values surfaced in X-RateLimit headers.
type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// withRateLimit buckets requests per route and caller key, so a burst on one endpoint
// does not starve the others.
func (r *Router) withRateLimit(route string, limit int, window time.Duration, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		key := keyFn(req)
		if key == "" {
			key = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(route+"|"+key, limit, window)
		r.applyRateHeaders(w, limit, decision)
		if !decision.allowed {
			r.recordRateLimitHit(route, rateMetricKey(key))
			if !decision.windowEnd.IsZero() {
				retry := int(time.Until(decision.windowEnd).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			writeErrorCode(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

func (r *Router) handlerAuthRate(route string, limit int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.withRateLimit(route, limit, window, r.rateLimitKeyUser, next))
}

func (r *Router) rateLimitKeyUser(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.UserID != "" {
		return "user:" + info.UserID
	}
	return ""
}

func rateLimitKeyIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

func rateMetricKey(key string) string {
	if key == "" {
		return "unknown"
	}
	if idx := strings.IndexRune(key, ':'); idx > 0 {
		return key[:idx]
	}
	return key
}
