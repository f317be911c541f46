package httpx

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gatehouse-io/gatehouse/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters for one endpoint tier.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Endpoint tiers, ordered from most to least restrictive. Each tier can be
// overridden via environment variables (see init below).
var (
	// StrictLimit guards credential endpoints against brute forcing.
	// Override with: GATEHOUSE_RATELIMIT_STRICT_REQUESTS, _WINDOW_SEC, _BURST
	StrictLimit = RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}

	// ModerateLimit covers authenticated session operations.
	// Override with: GATEHOUSE_RATELIMIT_MODERATE_REQUESTS, _WINDOW_SEC, _BURST
	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            time.Minute,
		Burst:             20,
	}

	// LenientLimit covers cheap read-only endpoints such as validate.
	// Override with: GATEHOUSE_RATELIMIT_LENIENT_REQUESTS, _WINDOW_SEC, _BURST
	LenientLimit = RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             100,
	}

	// PublicLimit covers the authorization check hot path. All proxied
	// traffic funnels through a handful of gateway IPs, so this tier is a
	// runaway-client backstop rather than a per-user quota.
	// Override with: GATEHOUSE_RATELIMIT_PUBLIC_REQUESTS, _WINDOW_SEC, _BURST
	PublicLimit = RateLimitConfig{
		RequestsPerWindow: 6000,
		Window:            time.Minute,
		Burst:             600,
	}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv reads rate limit overrides from environment variables
// named GATEHOUSE_RATELIMIT_{tier}_{field}, e.g. GATEHOUSE_RATELIMIT_PUBLIC_REQUESTS.
// Unset or malformed values keep the defaults.
func ParseRateLimitFromEnv(tier string, defaults RateLimitConfig) RateLimitConfig {
	config := defaults
	envKey := func(field string) string {
		return "GATEHOUSE_RATELIMIT_" + tier + "_" + field
	}

	if val := os.Getenv(envKey("REQUESTS")); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}
	if val := os.Getenv(envKey("WINDOW_SEC")); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}
	if val := os.Getenv(envKey("BURST")); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor derives the bucket key a request is limited under
// (client IP, session credential, or a combination).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SessionKeyExtractor keys a request by its session credential, cookie first,
// then the fallback header. Returns empty for anonymous requests.
func SessionKeyExtractor(cookieName, headerName string) KeyExtractor {
	return func(r *http.Request) string {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
		return r.Header.Get(headerName)
	}
}

// CompositeKeyExtractor combines multiple key extractors with a separator,
// skipping extractors that produce nothing for the request.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterIdleTTL is how long a bucket may go unused before its state is
// discarded during a sweep.
const limiterIdleTTL = 10 * time.Minute

// limiterPool holds one token bucket per key, evicting idle buckets so
// ephemeral keys (session tokens, scanner IPs) do not accumulate forever.
type limiterPool struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(config RateLimitConfig) *limiterPool {
	perSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()
	return &limiterPool{
		buckets:   make(map[string]*bucket),
		rate:      rate.Limit(perSecond),
		burst:     config.Burst,
		lastSweep: time.Now(),
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.rate, p.burst)}
		p.buckets[key] = b
	}
	b.lastSeen = now

	if now.Sub(p.lastSweep) >= limiterIdleTTL {
		p.lastSweep = now
		for k, old := range p.buckets {
			if now.Sub(old.lastSeen) >= limiterIdleTTL {
				delete(p.buckets, k)
			}
		}
	}

	return b.limiter
}

// RateLimitMiddleware creates a rate limiting middleware with the given
// configuration. The keyExtractor determines how requests are bucketed.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	pool := newLimiterPool(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				// No key means no bucket to charge. Let the request
				// through rather than collapsing everyone into one.
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := pool.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitBySession limits by session credential plus client IP, so one busy
// gateway address does not exhaust the budget for everyone behind it.
// Anonymous requests fall back to the IP alone.
func RateLimitBySession(config RateLimitConfig, cookieName, headerName string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		SessionKeyExtractor(cookieName, headerName),
		IPKeyExtractor,
	))
}
