package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
)

// EndpointLimit caps one route, keyed per client IP.
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// Config holds the middleware's limits. Endpoint keys are
// "METHOD /path" as seen by the router.
type Config struct {
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	EndpointLimits map[string]EndpointLimit

	BucketTTL      time.Duration
	IncludeHeaders bool
}

// DefaultConfig returns the standard limits: a generous per-IP cap
// plus tight caps on the credential endpoints, where every request is
// a password or code guess.
func DefaultConfig() *Config {
	perMinute := func(n int) float64 { return float64(n) / 60.0 }
	return &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: perMinute(100),

		EndpointLimits: map[string]EndpointLimit{
			"POST /login":                     {Capacity: 10, RefillRate: perMinute(10)},
			"POST /login/student":             {Capacity: 10, RefillRate: perMinute(10)},
			"POST /forgot-password/request":   {Capacity: 3, RefillRate: 3.0 / 3600.0},
			"POST /forgot-password/verify":    {Capacity: 10, RefillRate: perMinute(10)},
			"POST /temp-password/send-code":   {Capacity: 3, RefillRate: 3.0 / 3600.0},
			"POST /temp-password/verify-code": {Capacity: 10, RefillRate: perMinute(10)},
			"POST /signup/staff-request":      {Capacity: 5, RefillRate: 5.0 / 300.0},
			"POST /signup/students/register":  {Capacity: 5, RefillRate: 5.0 / 300.0},
		},

		BucketTTL:      time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware rate-limits requests per client IP with tighter buckets
// on configured endpoints.
type Middleware struct {
	config           *Config
	ipLimiter        *RateLimiter
	endpointLimiters map[string]*RateLimiter
}

// NewMiddleware creates the middleware from the config.
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:           config,
		endpointLimiters: make(map[string]*RateLimiter),
	}

	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	for endpoint, limit := range config.EndpointLimits {
		m.endpointLimiters[endpoint] = NewRateLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL)
	}

	return m
}

// Handler is the chi-compatible middleware function.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if m.config.PerIPEnabled && ip != "" && !m.ipLimiter.Allow(ip) {
			m.rejected(w, r, "ip")
			return
		}

		endpointKey := r.Method + " " + r.URL.Path
		if limiter, exists := m.endpointLimiters[endpointKey]; exists {
			if !limiter.Allow(ip) {
				m.rejected(w, r, "endpoint")
				return
			}
		}

		if m.config.IncludeHeaders && m.config.PerIPEnabled && ip != "" {
			w.Header().Set("X-RateLimit-Limit-IP", strconv.Itoa(m.config.PerIPCapacity))
		}

		next.ServeHTTP(w, r)
	})
}

// Reset clears the limits for a key, typically after a successful
// login from that IP.
func (m *Middleware) Reset(key string) {
	if m.ipLimiter != nil {
		m.ipLimiter.Reset(key)
	}
	for _, limiter := range m.endpointLimiters {
		limiter.Reset(key)
	}
}

func (m *Middleware) rejected(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded", "type", limitType, "ip", clientIP(r), "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", "60")
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]string{
		"error":   "rate_limit_exceeded",
		"message": "Too many requests. Please try again later.",
	})
}

// clientIP extracts the client address, preferring proxy headers over
// RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
