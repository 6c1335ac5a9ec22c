// Package gateway fronts the inventory and order services behind one port.
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Resolver maps a service name to a base URL.
type Resolver interface {
	ResolveURL(serviceName, fallback string) string
}

type Gateway struct {
	resolver  Resolver
	fallbacks map[string]string
	logger    *zap.Logger
	health    *http.Client

	mutex    sync.RWMutex
	proxies  map[string]*httputil.ReverseProxy
	services map[string]string
}

// New resolves every service in fallbacks once before returning.
func New(resolver Resolver, fallbacks map[string]string, logger *zap.Logger) *Gateway {
	g := &Gateway{
		resolver:  resolver,
		fallbacks: fallbacks,
		logger:    logger,
		health:    &http.Client{Timeout: 2 * time.Second},
		proxies:   make(map[string]*httputil.ReverseProxy),
		services:  make(map[string]string),
	}
	g.discoverServices()
	return g
}

func (g *Gateway) discoverServices() {
	for svc, fallback := range g.fallbacks {
		g.updateProxy(svc, g.resolver.ResolveURL(svc, fallback))
	}
}

// Watch re-resolves services every interval until ctx is done.
func (g *Gateway) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			g.discoverServices()
		}
	}
}

func (g *Gateway) updateProxy(serviceName, serviceURL string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.services[serviceName] == serviceURL {
		return
	}

	target, err := url.Parse(serviceURL)
	if err != nil {
		g.logger.Error("invalid service url", zap.String("service", serviceName), zap.String("url", serviceURL), zap.Error(err))
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(r.Header))
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.logger.Warn("proxy error", zap.String("service", serviceName), zap.String("path", r.URL.Path), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":"service unavailable"}`)
	}

	g.proxies[serviceName] = proxy
	g.services[serviceName] = serviceURL
	g.logger.Info("updated route", zap.String("service", serviceName), zap.String("url", serviceURL))
}

func (g *Gateway) getProxy(serviceName string) *httputil.ReverseProxy {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.proxies[serviceName]
}

// Proxy forwards the request unchanged to serviceName.
func (g *Gateway) Proxy(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxy := g.getProxy(serviceName)
		if proxy == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": serviceName + " unavailable"})
			return
		}
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func (g *Gateway) snapshot() map[string]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make(map[string]string, len(g.services))
	for k, v := range g.services {
		out[k] = v
	}
	return out
}

func (g *Gateway) HealthCheck(c *gin.Context) {
	services := g.snapshot()
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if g.probe(c.Request.Context(), services[name]) {
			statuses[name] = "healthy"
			continue
		}
		statuses[name] = "unhealthy"
		allHealthy = false
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"service":  "api-gateway",
		"services": statuses,
	})
}

func (g *Gateway) probe(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := g.health.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (g *Gateway) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": g.snapshot()})
}

// RegisterRoutes mounts the gateway. inventory and orders name the upstream services.
func RegisterRoutes(r gin.IRouter, g *Gateway, inventory, orders string) {
	r.GET("/health", g.HealthCheck)
	r.GET("/services", g.ListServices)

	r.Any("/inventory", g.Proxy(inventory))
	r.Any("/inventory/*path", g.Proxy(inventory))
	r.Any("/orders", g.Proxy(orders))
	r.Any("/orders/*path", g.Proxy(orders))
}
