package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/client"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/config"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/discovery"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/handlers"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/logging"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/messaging"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/metrics"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/saga"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/server"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/tracing"
)

func main() {
	cfg, err := config.LoadOrder()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.OrderServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("order service stopped", zap.Error(err))
	}
}

func run(cfg *config.Order, logger *zap.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, config.OrderServiceName, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	consul, leave := discovery.Join(cfg.ConsulAddr, discovery.ServiceConfig{
		Name: config.OrderServiceName,
		ID:   fmt.Sprintf("%s-%d", config.OrderServiceName, cfg.Port),
		Port: cfg.Port,
		Tags: []string{"api", "orders"},
	}, logger)
	defer leave()

	inventoryURL := cfg.InventoryURL
	if inventoryURL == "" {
		inventoryURL = consul.ResolveURL(config.InventoryServiceName, config.DefaultInventoryURL)
	}
	logger.Info("inventory service", zap.String("url", inventoryURL), zap.Duration("timeout", cfg.InventoryTimeout))
	inventoryClient := client.NewInventoryClient(inventoryURL, cfg.InventoryTimeout)

	var idempotency cache.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.IdempotencyTTL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		idempotency = cache.NewRedisIdempotencyStore(redisCache)
	} else {
		idempotency = cache.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}

	var events saga.Events = publisher.Nop{}
	if cfg.RabbitMQURL != "" {
		mq, err := messaging.NewRabbitMQ(cfg.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		defer mq.Close()

		orderPublisher, err := publisher.NewOrderPublisher(mq)
		if err != nil {
			return err
		}
		events = orderPublisher
	}

	orchestrator := saga.New(inventoryClient, db.NewOrderRepository(), events, logger,
		saga.WithIdempotencyStore(idempotency),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), tracing.Middleware(config.OrderServiceName), logging.Middleware(logger))
	router.GET("/metrics", metrics.Handler())
	handlers.RegisterOrderRoutes(router, handlers.NewOrderHandler(orchestrator))

	return server.Run(ctx, logger, fmt.Sprintf(":%d", cfg.Port), router)
}
