// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	InventoryServiceName = "inventory-service"
	OrderServiceName     = "order-service"
	GatewayServiceName   = "api-gateway"

	DefaultInventoryURL = "http://inventory-service:5001"
	DefaultOrderURL     = "http://order-service:5000"
)

// Common holds settings every service reads.
type Common struct {
	Port         int
	LogLevel     string
	ConsulAddr   string // empty disables Consul
	RabbitMQURL  string // empty disables events
	OtelEndpoint string // empty disables trace export
}

type Inventory struct {
	Common
	SeedFile  string
	ServiceID string
}

type Order struct {
	Common
	// InventoryURL is empty when INVENTORY_SERVICE_URL is unset, leaving the
	// choice between Consul and DefaultInventoryURL to the caller.
	InventoryURL     string
	InventoryTimeout time.Duration
	RedisAddr        string
	IdempotencyTTL   time.Duration
}

type Gateway struct {
	Common
	InventoryURL string
	OrderURL     string
}

func LoadInventory() (*Inventory, error) {
	common, err := loadCommon(5001)
	if err != nil {
		return nil, err
	}
	return &Inventory{
		Common:    common,
		SeedFile:  os.Getenv("INVENTORY_SEED_FILE"),
		ServiceID: getEnv("SERVICE_ID", fmt.Sprintf("%s-%d", InventoryServiceName, common.Port)),
	}, nil
}

func LoadOrder() (*Order, error) {
	common, err := loadCommon(5000)
	if err != nil {
		return nil, err
	}
	timeout, err := getDuration("INVENTORY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := getDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	return &Order{
		Common:           common,
		InventoryURL:     os.Getenv("INVENTORY_SERVICE_URL"),
		InventoryTimeout: timeout,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		IdempotencyTTL:   ttl,
	}, nil
}

func LoadGateway() (*Gateway, error) {
	common, err := loadCommon(8080)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		Common:       common,
		InventoryURL: getEnv("INVENTORY_SERVICE_URL", DefaultInventoryURL),
		OrderURL:     getEnv("ORDER_SERVICE_URL", DefaultOrderURL),
	}, nil
}

func loadCommon(defaultPort int) (Common, error) {
	port, err := getInt("PORT", defaultPort)
	if err != nil {
		return Common{}, err
	}
	return Common{
		Port:         port,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ConsulAddr:   os.Getenv("CONSUL_ADDR"),
		RabbitMQURL:  os.Getenv("RABBITMQ_URL"),
		OtelEndpoint: os.Getenv("OTEL_ENDPOINT"),
	}, nil
}

// getEnv reads key, falling back when it is unset or empty.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > 65535 {
		return 0, fmt.Errorf("%s must be a port number, got %q", key, raw)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}
