// Package discovery registers services with Consul and resolves their peers.
package discovery

import (
	"fmt"
	"net"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type ConsulClient struct {
	client *api.Client
	logger *zap.Logger
}

type ServiceConfig struct {
	Name string
	ID   string
	// Address defaults to the host's outbound IP.
	Address string
	Port    int
	Tags    []string
}

func NewConsulClient(addr string, logger *zap.Logger) (*ConsulClient, error) {
	config := api.DefaultConfig()
	config.Address = addr

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	if _, err := client.Agent().Self(); err != nil {
		return nil, fmt.Errorf("failed to connect to Consul: %w", err)
	}

	logger.Info("connected to consul", zap.String("addr", addr))
	return &ConsulClient{client: client, logger: logger}, nil
}

// getOutboundIP gets the preferred outbound IP of this machine
func getOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// Register registers a service with an HTTP check against its /health route.
func (c *ConsulClient) Register(cfg ServiceConfig) error {
	host := cfg.Address
	if host == "" {
		host = getOutboundIP()
	}

	registration := &api.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Port:    cfg.Port,
		Address: host,
		Tags:    cfg.Tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", host, cfg.Port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}

	if err := c.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	c.logger.Info("registered service",
		zap.String("name", cfg.Name),
		zap.String("id", cfg.ID),
		zap.String("address", host),
		zap.Int("port", cfg.Port),
	)
	return nil
}

func (c *ConsulClient) Deregister(serviceID string) error {
	if err := c.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	c.logger.Info("deregistered service", zap.String("id", serviceID))
	return nil
}

// GetService returns the first healthy instance of a service.
func (c *ConsulClient) GetService(serviceName string) (string, int, error) {
	services, _, err := c.client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get service: %w", err)
	}
	if len(services) == 0 {
		return "", 0, fmt.Errorf("no healthy instances of %s found", serviceName)
	}

	service := services[0].Service
	address := service.Address
	if address == "" {
		address = services[0].Node.Address
	}
	if address == "" {
		address = "localhost"
	}
	return address, service.Port, nil
}

func (c *ConsulClient) GetServiceURL(serviceName string) (string, error) {
	address, port, err := c.GetService(serviceName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(address, fmt.Sprint(port))), nil
}

// ResolveURL looks serviceName up and falls back when Consul has no healthy
// instance. A nil client always returns fallback.
func (c *ConsulClient) ResolveURL(serviceName, fallback string) string {
	if c == nil {
		return fallback
	}
	url, err := c.GetServiceURL(serviceName)
	if err != nil {
		c.logger.Warn("service lookup failed, using fallback",
			zap.String("service", serviceName),
			zap.String("fallback", fallback),
			zap.Error(err),
		)
		return fallback
	}
	return url
}

// Join connects to Consul at addr and registers cfg. Discovery is optional:
// failures are logged and Join returns a nil client, which ResolveURL treats
// as "use the fallback". leave deregisters and is always safe to call.
func Join(addr string, cfg ServiceConfig, logger *zap.Logger) (client *ConsulClient, leave func()) {
	leave = func() {}
	if addr == "" {
		return nil, leave
	}

	c, err := NewConsulClient(addr, logger)
	if err != nil {
		logger.Warn("consul unavailable, continuing without discovery", zap.String("addr", addr), zap.Error(err))
		return nil, leave
	}
	if err := c.Register(cfg); err != nil {
		logger.Warn("consul registration failed", zap.String("id", cfg.ID), zap.Error(err))
		return c, leave
	}
	return c, func() {
		if err := c.Deregister(cfg.ID); err != nil {
			logger.Warn("consul deregister failed", zap.Error(err))
		}
	}
}
