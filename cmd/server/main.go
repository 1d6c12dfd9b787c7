package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/adapter/ai/ollama"
	"github.com/seu-repo/ai-waiter/internal/adapter/ai/openai"
	"github.com/seu-repo/ai-waiter/internal/adapter/cache"
	"github.com/seu-repo/ai-waiter/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/ai-waiter/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/ai-waiter/internal/adapter/ordering"
	"github.com/seu-repo/ai-waiter/internal/adapter/payment"
	"github.com/seu-repo/ai-waiter/internal/adapter/queue"
	"github.com/seu-repo/ai-waiter/internal/adapter/storage/postgres"
	wsAdapter "github.com/seu-repo/ai-waiter/internal/adapter/websocket"
	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/internal/service/composer"
	"github.com/seu-repo/ai-waiter/internal/service/engine"
	"github.com/seu-repo/ai-waiter/internal/service/executor"
	"github.com/seu-repo/ai-waiter/internal/service/retrieval"
	"github.com/seu-repo/ai-waiter/internal/service/router"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

const (
	serviceName    = "ai-waiter"
	serviceVersion = "v1.0.0"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting AI Waiter",
		zap.String("service", serviceName),
		zap.String("version", serviceVersion),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(serviceName, serviceVersion, cfg.OpenTelemetry.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	db, err := postgres.NewConnection(cfg.Database.URL, cfg.Database.LogQueries, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := postgres.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	messageQueue, err := queue.NewNATSQueue(cfg.NATS.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer messageQueue.Close()

	sessionRepo := postgres.NewSessionRepository(db, logger)
	orderRepo := postgres.NewOrderRepository(db, logger)
	menuRepo := postgres.NewMenuRepository(db, logger)
	turnRepo := postgres.NewTurnRepository(db, logger)

	model, err := ollama.NewClient(cfg.Model, cfg.CircuitBreaker, logger)
	if err != nil {
		logger.Fatal("Failed to initialize model client", zap.Error(err))
	}
	embedder := openai.NewClient(cfg.Embeddings, logger)
	orderingGateway := ordering.NewClient(cfg.Ordering, cfg.CircuitBreaker, logger)
	paymentGateway := payment.NewStripeGateway(cfg.Payment.Stripe, logger)

	index := retrieval.NewIndex(menuRepo, embedder, cfg.Retrieval, logger)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	if cfg.Menu.SeedFile != "" {
		count, err := retrieval.SeedFromFile(startupCtx, cfg.Menu.SeedFile, cfg.Menu.Currency, menuRepo)
		if err != nil {
			logger.Fatal("Failed to seed menu", zap.Error(err))
		}
		logger.Info("Menu seeded", zap.Int("items", count))
	}
	if err := index.Rebuild(startupCtx); err != nil {
		logger.Fatal("Failed to build menu index", zap.Error(err))
	}
	cancelStartup()

	intentRouter := router.NewRouter(model, cfg.Engine.HistoryWindow, logger)
	actionExecutor := executor.NewExecutor(index, orderingGateway, paymentGateway, messageQueue, logger)
	replyComposer := composer.NewComposer(model, sessionRepo, orderRepo, turnRepo, messageQueue, cfg.Engine.HistoryWindow, logger)
	decisionEngine := engine.NewEngine(sessionRepo, orderRepo, intentRouter, actionExecutor, replyComposer, index, redisCache, cfg.Engine, cfg.Retrieval, logger)

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(cfg.CORS))
	app.Use(middleware.RateLimit(cfg.RateLimiting))
	app.Use(middleware.CircuitBreaker(cfg.CircuitBreaker, logger))

	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		if err := sqlDB.Ping(); err != nil {
			return c.Status(503).SendString("Database not ready")
		}
		if err := redisCache.Ping(); err != nil {
			return c.Status(503).SendString("Cache not ready")
		}
		return c.SendString("Ready")
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	})

	v1 := app.Group("/api/v1")

	turnHandler := handlers.NewTurnHandler(decisionEngine, logger)
	v1.Post("/turns", turnHandler.HandleTurn)

	sessionHandler := handlers.NewSessionHandler(decisionEngine, sessionRepo, orderRepo, logger)
	v1.Get("/sessions/:id", sessionHandler.GetSession)
	v1.Get("/sessions/:id/order", sessionHandler.GetOrder)
	v1.Delete("/sessions/:id", sessionHandler.CloseSession)

	menuHandler := handlers.NewMenuHandler(menuRepo, index, messageQueue, logger)
	v1.Get("/menu", menuHandler.ListItems)
	v1.Post("/menu/reload", menuHandler.Reload)

	turnStreamHandler := wsAdapter.NewTurnStreamHandler(decisionEngine, logger)
	wsAdapter.SetupTurnRoutes(app, turnStreamHandler)

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	go startBackgroundWorkers(workersCtx, decisionEngine, index, messageQueue, cfg.Engine, logger)

	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// startBackgroundWorkers runs the idle session sweeper and keeps the
// retrieval snapshot in sync with menu edits made on other instances.
func startBackgroundWorkers(ctx context.Context, eng *engine.Engine, index *retrieval.Index, mq queue.MessageQueue, cfg config.EngineConfig, logger *zap.Logger) {
	logger.Info("Starting background workers")

	if err := mq.Subscribe(queue.SubjectMenuUpdated, func(msg []byte) error {
		rebuildCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := index.Rebuild(rebuildCtx); err != nil {
			logger.Error("Menu index rebuild from event failed", zap.Error(err))
			return err
		}
		return nil
	}); err != nil {
		logger.Error("Menu update subscription failed", zap.Error(err))
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.SweepIdleSessions(ctx)
		}
	}
}
