package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"push-service/internal/api"
	"push-service/internal/bot"
	"push-service/internal/config"
	"push-service/internal/db"
	"push-service/internal/events"
	"push-service/internal/observability"
	"push-service/internal/queue"
	"push-service/internal/rate"
	"push-service/internal/store"
	"push-service/internal/telegram"
	"push-service/internal/transport"
	"push-service/internal/worker"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "etc/push.toml", "configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.GetLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting push service")

	otelShutdown, err := observability.SetupOpenTelemetry("push-service", logger)
	if err != nil {
		logger.Fatal("failed to set up OpenTelemetry", zap.Error(err))
	}
	defer otelShutdown()

	metrics := observability.NewMetrics()

	ctx := context.Background()

	database, err := db.NewPostgres(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations("migrations"); err != nil {
		logger.Warn("failed to run migrations", zap.Error(err))
	}

	redis, err := db.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	repo := store.New(database, logger)
	delayQueue := queue.NewDelayQueue(redis.Client, cfg.Redis.QueueName, logger)

	tgClient := telegram.NewClient(cfg.Telegram.URL, cfg.Telegram.Token)
	tgDriver := transport.NewTelegramDriver(tgClient)
	drivers := transport.Registry{
		store.TransportTelegram: tgDriver,
	}

	var deadLetter worker.DeadLetter
	if cfg.NATS.URL != "" {
		publisher, err := events.NewPublisher(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		deadLetter = publisher
	}

	pusher := worker.NewPusher(worker.Options{
		Store:       repo,
		Queue:       delayQueue,
		Drivers:     drivers,
		DeadLetter:  deadLetter,
		Metrics:     metrics,
		Workers:     cfg.Worker.Count,
		Buffer:      cfg.Worker.Buffer,
		MaxAttempts: cfg.Worker.MaxAttempts,
		Logger:      logger,
	})
	if err := pusher.Start(ctx); err != nil {
		logger.Fatal("failed to start pusher", zap.Error(err))
	}

	poller := bot.NewPoller(tgClient, repo, tgDriver, logger)
	if err := poller.Start(ctx); err != nil {
		logger.Fatal("failed to start bot poller", zap.Error(err))
	}

	limiter := rate.NewLimiter(redis.Client, logger, cfg.Rate.RPS, cfg.Rate.Burst)
	issuer := api.NewTokenIssuer(cfg.Server.AccessSecret, cfg.Server.AccessExpire)
	handlers := api.NewHandlers(logger, repo, delayQueue, issuer, limiter, metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler(logger),
	})
	api.SetupRoutes(app, logger, metrics, handlers, issuer)

	var metricsServer interface{ Shutdown(context.Context) error }
	if cfg.Server.MetricsPort > 0 {
		metricsServer = observability.ServeMetrics(fmt.Sprintf(":%d", cfg.Server.MetricsPort), logger)
	}

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("push service started",
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", cfg.Worker.Count))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("failed to shut down http server", zap.Error(err))
	}
	if err := poller.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop bot poller", zap.Error(err))
	}
	if err := pusher.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop pusher", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop metrics listener", zap.Error(err))
		}
	}

	logger.Info("push service stopped")
}
