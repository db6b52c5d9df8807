package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/klinvest/broker-etrade/pkg/auth"
	apperrors "github.com/klinvest/broker-etrade/pkg/errors"
	"github.com/klinvest/broker-etrade/pkg/logger"
	"github.com/klinvest/broker-etrade/pkg/telemetry"
)

func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)

		return c.Next()
	}
}

func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok {
		return id
	}
	return ""
}

func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Cache-Control", "no-store")
		return c.Next()
	}
}

// Tracing starts a server span per request and stores it in the user
// context, so broker calls made by handlers become its children.
func Tracing(service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.StartSpan(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("service.name", service),
				attribute.String("http.request.method", c.Method()),
				attribute.String("url.path", c.Path()),
				attribute.String("request.id", GetRequestID(c)),
			),
		)
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(attribute.Int("http.response.status_code", c.Response().StatusCode()))
		telemetry.EndSpan(span, err)
		return err
	}
}

func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		l := logger.WithContext(c.UserContext())
		l.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("request_id", GetRequestID(c)).
			Msg("request")

		return err
	}
}

type RateLimitConfig struct {
	Max      int
	Duration time.Duration
}

type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   RateLimitConfig
}

type visitor struct {
	count    int
	lastSeen time.Time
}

// RateLimiter caps requests per client IP within a window. E*TRADE throttles
// per consumer key, so one noisy caller would otherwise starve the rest.
func RateLimiter(config RateLimitConfig) fiber.Handler {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		config:   config,
	}

	go rl.cleanup()

	return func(c *fiber.Ctx) error {
		if !rl.allow(c.IP(), time.Now()) {
			return apperrors.ErrRateLimited
		}
		return c.Next()
	}
}

func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastSeen) > rl.config.Duration {
		rl.visitors[ip] = &visitor{count: 1, lastSeen: now}
		return true
	}

	if v.count >= rl.config.Max {
		return false
	}

	v.count++
	v.lastSeen = now
	return true
}

func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > rl.config.Duration*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Auth requires a bearer operator token signed with jwtSecret.
func Auth(jwtSecret string) fiber.Handler {
	tokens := auth.NewManager(&auth.Config{Secret: jwtSecret})

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperrors.ErrUnauthorized.WithDetails("missing authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperrors.ErrUnauthorized.WithDetails("invalid authorization header format")
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			return apperrors.ErrUnauthorized.WithDetails("invalid token")
		}

		c.Locals("operator", claims.Name())

		return c.Next()
	}
}

func GetOperator(c *fiber.Ctx) string {
	if id, ok := c.Locals("operator").(string); ok {
		return id
	}
	return ""
}
