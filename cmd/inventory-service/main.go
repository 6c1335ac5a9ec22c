package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/config"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/consumer"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/discovery"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/handlers"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/inventory"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/logging"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/messaging"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/metrics"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/server"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/tracing"
)

func main() {
	cfg, err := config.LoadInventory()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.InventoryServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("inventory service stopped", zap.Error(err))
	}
}

func run(cfg *config.Inventory, logger *zap.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, config.InventoryServiceName, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	seed, err := inventory.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	ledger := inventory.NewLedger(db.NewStockRepository(), logger)
	if err := ledger.Seed(seed); err != nil {
		return err
	}
	logger.Info("inventory seeded", zap.Int("products", len(seed)))

	var workers []server.Worker
	if cfg.RabbitMQURL != "" {
		mq, err := messaging.NewRabbitMQ(cfg.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		defer mq.Close()

		if err := mq.DeclareQueue(publisher.LedgerDriftQueue); err != nil {
			return err
		}
		messages, err := mq.Consume(publisher.LedgerDriftQueue)
		if err != nil {
			return err
		}
		drift := consumer.NewDriftConsumer(logger)
		workers = append(workers, func(ctx context.Context) error {
			drift.Run(ctx, messages)
			return nil
		})
	}

	_, leave := discovery.Join(cfg.ConsulAddr, discovery.ServiceConfig{
		Name: config.InventoryServiceName,
		ID:   cfg.ServiceID,
		Port: cfg.Port,
		Tags: []string{"api", "inventory"},
	}, logger)
	defer leave()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), tracing.Middleware(config.InventoryServiceName), logging.Middleware(logger))
	router.GET("/metrics", metrics.Handler())
	handlers.RegisterInventoryRoutes(router, handlers.NewInventoryHandler(ledger))

	return server.Run(ctx, logger, fmt.Sprintf(":%d", cfg.Port), router, workers...)
}
