package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/klinvest/broker-etrade/pkg/config"
	"github.com/klinvest/broker-etrade/pkg/etrade"
	"github.com/klinvest/broker-etrade/pkg/events"
	"github.com/klinvest/broker-etrade/pkg/logger"
	"github.com/klinvest/broker-etrade/pkg/metrics"
	"github.com/klinvest/broker-etrade/pkg/middleware"
	"github.com/klinvest/broker-etrade/pkg/oauth1"
	"github.com/klinvest/broker-etrade/pkg/response"
	"github.com/klinvest/broker-etrade/pkg/swagger"
	"github.com/klinvest/broker-etrade/pkg/telemetry"
	"github.com/klinvest/broker-etrade/services/broker-etrade/internal/handler"
	"github.com/klinvest/broker-etrade/services/broker-etrade/internal/session"
	"github.com/klinvest/broker-etrade/services/broker-etrade/internal/types"
)

const serviceName = "broker-etrade"

//go:embed openapi.yaml
var openapiSpec []byte

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(serviceName, cfg.Log.Level, cfg.Log.Pretty)
	logger.Info().Msg("Starting E*TRADE broker service")

	ctx := context.Background()

	// Tracing
	tp, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		CollectorURL: cfg.Telemetry.CollectorURL,
		Environment:  cfg.Telemetry.Environment,
		Enabled:      cfg.Telemetry.Enabled,
		Exporter:     cfg.Telemetry.Exporter,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		defer tp.Shutdown(ctx)
	}

	// Request token store
	var tokens oauth1.RequestTokenStore
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Failed to connect to Redis")
		}
		tokens = oauth1.NewRedisRequestTokenStore(rdb)
		logger.Info().Msg("Connected to Redis")
	} else {
		tokens = oauth1.NewMemoryRequestTokenStore()
		logger.Warn().Msg("Redis disabled, request tokens kept in memory")
	}

	// Kafka publisher
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Brokers[0] != "" {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, serviceName)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka publisher enabled")
	} else {
		logger.Warn().Msg("Kafka not configured, events will not be published")
	}
	defer publisher.Close()

	// Broker session
	sess := session.New(
		session.WithClientFactory(session.DefaultClientFactory(cfg.ETrade.BaseURL, nil)),
		session.WithServiceName(serviceName),
	)
	metrics.SetSessionAuthenticated(serviceName, false)

	if cfg.ETrade.ConsumerKey != "" {
		sandbox := cfg.ETrade.Sandbox
		resp := sess.Initialize(ctx, types.InitializeRequest{
			ConsumerKey:      cfg.ETrade.ConsumerKey,
			ConsumerSecret:   cfg.ETrade.ConsumerSecret,
			OAuthToken:       cfg.ETrade.OAuthToken,
			OAuthTokenSecret: cfg.ETrade.OAuthTokenSecret,
			IsSandbox:        &sandbox,
		})
		if !resp.Success {
			logger.Error().Str("error", resp.Error).Msg("Failed to initialize broker session from config")
		} else {
			logger.Info().Bool("requires_auth", resp.RequiresAuth).Msg(resp.Message)
		}
	} else {
		logger.Warn().Msg("No E*TRADE consumer key configured, waiting for /v1/initialize")
	}

	var flow *oauth1.Flow
	if cfg.ETrade.ConsumerKey != "" && cfg.ETrade.ConsumerSecret != "" {
		flow = oauth1.NewFlow(
			cfg.ETrade.ConsumerKey,
			cfg.ETrade.ConsumerSecret,
			cfg.ETrade.Callback,
			etrade.OAuthEndpointFor(cfg.ETrade.BaseURL),
			telemetry.WrapHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		)
	}

	h := handler.New(sess, flow, tokens, publisher, serviceName)

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "KL E*TRADE Broker",
		ErrorHandler: response.ErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Tracing(serviceName))
	app.Use(middleware.Logger())
	app.Use(middleware.SecurityHeaders())
	app.Use(metrics.Middleware(metrics.Config{
		ServiceName: serviceName,
		SkipPaths:   []string{"/health", "/metrics", "/docs"},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": serviceName, "state": sess.State()})
	})
	app.Get("/metrics", metrics.Handler())
	app.Use(swagger.Handler(swagger.Config{
		Spec:  openapiSpec,
		Title: "E*TRADE Broker Adapter",
	}))

	v1 := app.Group("/v1", middleware.RateLimiter(middleware.RateLimitConfig{
		Max:      120,
		Duration: time.Minute,
	}))
	if cfg.Auth.JWTSecret != "" {
		v1.Use(middleware.Auth(cfg.Auth.JWTSecret))
	} else {
		logger.Warn().Msg("auth.jwt_secret not set, /v1 routes are unauthenticated")
	}
	h.Register(v1)

	// Start server
	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
	go func() {
		if err := app.Listen(addr); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	logger.Info().Str("addr", addr).Bool("sandbox", cfg.ETrade.Sandbox).Msg("E*TRADE broker service started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down E*TRADE broker service")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}
}
