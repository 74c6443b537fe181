package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// Context Keys
// ============================================================================

type contextKey string

const (
	// UserIDKey is the context key for the authenticated caller's subject.
	UserIDKey contextKey = "user_id"
	// UserRolesKey is the context key for the authenticated caller's roles.
	UserRolesKey contextKey = "user_roles"
)

// ============================================================================
// JWT Claims
// ============================================================================

// JWTClaims is the claim set mutating verbs require: a caller identity and
// a list of roles. AuthMiddleware stores the roles under UserRolesKey; no
// handler checks them.
type JWTClaims struct {
	jwt.RegisteredClaims
	UserID string   `json:"sub"`
	Roles  []string `json:"roles"`
}

// ============================================================================
// Middleware Configuration
// ============================================================================

// MiddlewareConfig holds JWT verification settings.
type MiddlewareConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SkipAuth    bool
}

// DefaultMiddlewareConfig returns default middleware configuration.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		JWTSecret:   "your-secret-key-change-in-production",
		JWTIssuer:   "rfot",
		JWTAudience: "rfot-api",
		SkipAuth:    false,
	}
}

// SetMiddlewareConfig replaces the handler's middleware configuration.
func (h *Handler) SetMiddlewareConfig(config MiddlewareConfig) {
	h.middlewareConfig = config
}

// ============================================================================
// Authentication Middleware
// ============================================================================

// AuthMiddleware validates a bearer JWT and stores the caller's identity
// and roles in the request context. Only the mutating verbs in routes.go
// are wrapped with this middleware; the read verbs (get_timeline,
// portfolio_forecast, stage_resource_forecast, generation_stats,
// timeline_bounds) are unauthenticated, per §6's read/write split.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.middlewareConfig.SkipAuth {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondError(w, ErrUnauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			h.respondError(w, ErrUnauthorized("invalid authorization header format"))
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.middlewareConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			h.respondError(w, ErrUnauthorized("invalid or expired token"))
			return
		}

		if claims.UserID == "" {
			h.respondError(w, ErrUnauthorized("invalid subject in token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware applies a fixed requests-per-window cap ahead of the
// usecase layer's own generate_bulk rate limiting, protecting the service
// from request storms rather than pacing the worker pool.
func (h *Handler) RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				h.respondError(w, ErrTooManyRequests("rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is a minimal sliding-window limiter keyed by caller address
// (it keeps each key's hit times and counts those inside the trailing window),
// grounded on the sliding counters pkg/middleware/ratelimit.go keeps per
// tenant; the forecast service has no tenant dimension so the key is the
// remote address instead.
type RateLimiter struct {
	requests int
	window   time.Duration
	mu       sync.Mutex
	hits     map[string][]time.Time
}

// NewRateLimiter creates a RateLimiter allowing requests hits per window
// per key.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{requests: requests, window: window, hits: make(map[string][]time.Time)}
}

// Allow reports whether key may proceed, recording the hit if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	kept := rl.hits[key][:0]
	for _, t := range rl.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rl.requests {
		rl.hits[key] = kept
		return false
	}
	rl.hits[key] = append(kept, now)
	return true
}
