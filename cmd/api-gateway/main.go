package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/config"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/discovery"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/gateway"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/logging"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/server"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/tracing"
)

const watchInterval = 10 * time.Second

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.GatewayServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api gateway stopped", zap.Error(err))
	}
}

func run(cfg *config.Gateway, logger *zap.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, config.GatewayServiceName, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	var consul *discovery.ConsulClient
	if cfg.ConsulAddr != "" {
		consul, err = discovery.NewConsulClient(cfg.ConsulAddr, logger)
		if err != nil {
			logger.Warn("consul unavailable, using configured urls", zap.Error(err))
			consul = nil
		}
	}

	gw := gateway.New(consul, map[string]string{
		config.InventoryServiceName: cfg.InventoryURL,
		config.OrderServiceName:     cfg.OrderURL,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), tracing.Middleware(config.GatewayServiceName), logging.Middleware(logger))
	gateway.RegisterRoutes(router, gw, config.InventoryServiceName, config.OrderServiceName)

	var workers []server.Worker
	if consul != nil {
		workers = append(workers, func(ctx context.Context) error {
			return gw.Watch(ctx, watchInterval)
		})
	}

	return server.Run(ctx, logger, fmt.Sprintf(":%d", cfg.Port), router, workers...)
}
