// Package middleware installs the global Fiber middleware chain: CORS,
// request ids, health probes, optional API-key auth and rate limiting.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
	"reportpdf/internal/infra/logging"
)

const apiKeyLocal = "api_key"

// Tokens resolves API keys and their per-interval limits.
type Tokens interface {
	Ready() bool
	Validate(token string) bool
	RateLimit(token string) int
}

// NewStore returns the limiter storage: Redis when a host is configured and
// reachable, memory otherwise.
func NewStore(cfg config.Config) (store fiber.Storage) {
	if cfg.Cache.RedisHost == "" {
		return memoryStorage.New()
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			store = memoryStorage.New()
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Cache.RedisHost},
		Database: cfg.Cache.RateLimitDB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.RateLimitDB)
	return store
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    fiber.StatusTooManyRequests,
			"message": "Too Many Requests",
		},
	})
}

// tokenLimiters caches one limiter per distinct token limit.
type tokenLimiters struct {
	store    fiber.Storage
	interval time.Duration

	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

func newTokenLimiters(store fiber.Storage, interval time.Duration) *tokenLimiters {
	return &tokenLimiters{store: store, interval: interval, handlers: make(map[int]fiber.Handler)}
}

func (l *tokenLimiters) get(limit int) fiber.Handler {
	l.mu.RLock()
	h, ok := l.handlers[limit]
	l.mu.RUnlock()
	if ok {
		return h
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.handlers[limit]; ok {
		return h
	}
	h = limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        l.interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           l.store,
		KeyGenerator: func(c *fiber.Ctx) string {
			token, _ := c.Locals(apiKeyLocal).(string)
			return "token:" + token
		},
		LimitReached: func(c *fiber.Ctx) error {
			token, _ := c.Locals(apiKeyLocal).(string)
			logging.Warn("Rate limit exceeded", "token", token, "path", c.Path())
			return tooManyRequests(c)
		},
	})
	l.handlers[limit] = h
	return h
}

// TokenRateLimit applies the authenticated token's own limit. Anonymous
// requests and tokens with limit 0 pass through.
func TokenRateLimit(tokens Tokens, store fiber.Storage, interval time.Duration) fiber.Handler {
	limiters := newTokenLimiters(store, interval)
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(apiKeyLocal).(string)
		if !ok || token == "" {
			return c.Next()
		}
		limit := tokens.RateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		return limiters.get(limit)(c)
	}
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

// UserRateLimit limits anonymous clients by IP and User-Agent. Requests
// carrying an API key are left to TokenRateLimit.
func UserRateLimit(cfg config.Config, store fiber.Storage) fiber.Handler {
	if cfg.RateLimiter.UserLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	userLimiter := limiter.New(limiter.Config{
		Max:               cfg.RateLimiter.UserLimit,
		Expiration:        cfg.RateLimiter.Interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "user:" + clientKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", clientKey(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return func(c *fiber.Ctx) error {
		if token, ok := c.Locals(apiKeyLocal).(string); ok && token != "" {
			return c.Next()
		}
		return userLimiter(c)
	}
}

// APIKey validates X-API-Key against tokens. Requests without the header
// and preflight requests are not checked.
func APIKey(tokens Tokens) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: apiKeyLocal,
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if !tokens.Ready() {
				return false, domain.ErrTokenStoreNotReady
			}
			if !tokens.Validate(key) {
				return false, domain.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may pass a nil error.
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			status := fiber.StatusUnauthorized
			if errors.Is(err, domain.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}

// RequestLog logs every request with its id, status and duration.
func RequestLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		err := c.Next()
		logging.Debug("Request finished",
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
}

// Register attaches the global middleware to app. tokens may be nil, in
// which case API keys are not checked and only the user limiter applies.
func Register(app *fiber.App, cfg config.Config, tokens Tokens) {
	store := NewStore(cfg)

	app.Use(cors.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return xid.New().String() },
	}))
	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/ops/health",
		ReadinessEndpoint: "/ops/ready",
		ReadinessProbe: func(*fiber.Ctx) bool {
			return tokens == nil || tokens.Ready()
		},
	}))

	if tokens != nil {
		app.Use(APIKey(tokens))
		app.Use(TokenRateLimit(tokens, store, cfg.RateLimiter.Interval))
	}
	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		app.Use(UserRateLimit(cfg, store))
	}

	app.Use(RequestLog())
}
