package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bikeshop/internal/app"
	"bikeshop/internal/cache"
	"bikeshop/internal/config"
	"bikeshop/internal/database"
	"bikeshop/internal/logger"
	"bikeshop/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
)

func main() {
	// --- Configuration ---
	envErr := config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.WithError(envErr).Info("No .env file loaded, relying on system environment variables")
	}

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	deps := app.Dependencies{DB: db, Log: log}

	// --- Redis (optional unless carts live in the session) ---
	if cfg.RedisEnabled() {
		rc, err := cache.NewRedisClient(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			if cfg.CartStrategy == config.CartSession {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			log.WithError(err).Warn("Redis unavailable, running without the catalog cache")
		} else {
			defer rc.Close()
			deps.Redis = rc
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- RabbitMQ (optional) ---
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, order events disabled")
		} else {
			defer mqClient.Close()
			deps.Publisher = mqClient
			startOrderConsumer(ctx, mqClient, log)
		}
	}

	// --- Application ---
	shop, err := app.NewApp(cfg, deps)
	if err != nil {
		log.Fatalf("Failed to assemble application: %v", err)
	}
	if err := shop.Bootstrap(); err != nil {
		log.Fatalf("Failed to bootstrap data: %v", err)
	}

	// --- Start HTTP Server ---
	go func() {
		log.Infof("Starting server on %s", cfg.AppPort)
		if err := shop.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")
	if err := shop.Fiber.Shutdown(); err != nil {
		log.WithError(err).Error("Error during Fiber shutdown")
	}
	log.Info("Server gracefully stopped")
}

// startOrderConsumer logs every order event seen on the queue.
func startOrderConsumer(ctx context.Context, mq *rabbitmq.Client, log logrus.FieldLogger) {
	handler := func(event rabbitmq.OrderCreatedEvent) error {
		log.WithFields(logrus.Fields{
			"order_id": event.OrderID,
			"user_id":  event.UserID,
			"total":    event.Total,
			"items":    event.Items,
		}).Info("Received order created event")
		return nil
	}
	if err := mq.ConsumeOrderEvents(ctx, handler); err != nil {
		log.WithError(err).Error("Failed to start RabbitMQ consumer")
	}
}
