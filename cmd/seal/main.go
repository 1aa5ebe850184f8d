package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/getseal/seal/api"
	"github.com/getseal/seal/core/access"
	"github.com/getseal/seal/core/check"
	"github.com/getseal/seal/core/config"
	"github.com/getseal/seal/core/health"
	"github.com/getseal/seal/core/logger"
	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/telemetry"
	"github.com/getseal/seal/persistence"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("Starting Seal Permission Service",
		zap.Int("port", cfg.Port),
		zap.String("dsn", cfg.DSN),
	)

	// Telemetry
	tel, err := telemetry.NewProvider(telemetry.Config{
		ServiceName:    "seal",
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplingRate:   cfg.TraceSamplingRate,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		logger.Log.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer tel.Shutdown(context.Background())

	// Storage
	storage, err := persistence.NewStorage(cfg.DBType, cfg.DSN, cfg.SkipAutoMigrate)
	if err != nil {
		logger.Log.Fatal("failed to initialize storage", zap.Error(err))
	}

	// Check engine over the persisted tuples and the active rule graph
	registry := namespace.NewRegistry()
	engine := check.NewEngine(storage.Tuples, registry,
		check.WithMaxDepth(cfg.MaxCheckDepth),
		check.WithLogger(logger.Log),
	)

	// Optional decision cache, shared via Redis when configured
	var redisClient *redis.Client
	var checker check.Checker = engine
	var cached *check.CachedChecker
	if cfg.CheckCacheTTL > 0 {
		var cache check.Cache = check.NewMemoryCache()
		if cfg.RedisAddr != "" {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			cache = check.NewRedisCache(redisClient, "")
		}
		cached = check.NewCachedChecker(engine, cache, registry, cfg.CheckCacheTTL)
		checker = cached
	}

	// Decision audit trail, then instrumentation outermost so cache hits
	// are measured too
	checker = check.NewAuditChecker(checker, storage.Audits)
	checker = check.NewInstrumentedChecker(checker, tel)

	opts := []access.ManagerOption{
		access.WithVersionStore(storage.Versions),
		access.WithAuditStore(storage.Audits),
		access.WithLogger(logger.Log),
	}
	if cached != nil {
		opts = append(opts, access.WithInvalidator(cached.Invalidate))
	}
	manager := access.NewManager(storage.Tuples, registry, checker, opts...)

	// Reload previously active rules so checks work across restarts
	if err := manager.RestoreActive(context.Background()); err != nil {
		logger.Log.Fatal("failed to restore active rule version", zap.Error(err))
	}

	// Health
	hm := health.NewManager(Version, health.WithTimeout(5*time.Second))
	hm.Register(health.NewDatabaseChecker("database", func(ctx context.Context) error {
		db, err := storage.DB().DB()
		if err != nil {
			return err
		}
		return db.PingContext(ctx)
	}))
	hm.Register(health.NewRuleGraphChecker(registry))
	if redisClient != nil {
		hm.Register(health.NewRedisChecker("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}

	// Handler
	h := api.NewHandler(manager)
	h.SetAuditStore(storage.Audits)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	g := e.Group("/api/v1")
	auth := api.AuthConfig{TokenHash: cfg.AdminTokenHash, JWTSecret: cfg.JWTSecret}
	if auth.Enabled() {
		g.Use(api.AuthMiddleware(auth))
	}
	h.RegisterRoutes(g)

	e.GET("/healthz", echo.WrapHandler(hm.LiveHandler()))
	e.GET("/ready", echo.WrapHandler(hm.ReadyHandler()))
	e.GET("/health", echo.WrapHandler(hm.FullHandler()))
	if cfg.TelemetryEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	logger.Log.Info("Server is starting", zap.Int("port", cfg.Port))
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Log.Fatal("server failed to start", zap.Error(err))
	}
}
