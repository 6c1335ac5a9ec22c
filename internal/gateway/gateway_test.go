package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticResolver map[string]string

func (s staticResolver) ResolveURL(name, fallback string) string {
	if url, ok := s[name]; ok {
		return url
	}
	return fallback
}

func backend(t *testing.T, name string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"backend": name, "path": r.URL.Path})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// serve runs the gateway on a real listener. Proxying through gin needs an
// http.CloseNotifier, which httptest.ResponseRecorder is not.
func serve(t *testing.T, g *Gateway) string {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, g, "inventory-service", "order-service")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func get(t *testing.T, baseURL, path string) (int, map[string]any) {
	resp, err := http.Get(baseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestGateway_RoutesByPrefix(t *testing.T) {
	inv := backend(t, "inventory")
	ord := backend(t, "orders")
	g := New(staticResolver{"inventory-service": inv.URL}, map[string]string{
		"inventory-service": "http://unused",
		"order-service":     ord.URL,
	}, zap.NewNop())
	base := serve(t, g)

	code, body := get(t, base, "/inventory/P001")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "inventory", body["backend"])
	assert.Equal(t, "/inventory/P001", body["path"])

	code, body = get(t, base, "/orders")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "orders", body["backend"])

	_, body = get(t, base, "/services")
	assert.Equal(t, map[string]any{"inventory-service": inv.URL, "order-service": ord.URL}, body["services"])
}

func TestGateway_UpstreamDown(t *testing.T) {
	inv := backend(t, "inventory")
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	g := New(staticResolver{}, map[string]string{
		"inventory-service": inv.URL,
		"order-service":     dead.URL,
	}, zap.NewNop())
	base := serve(t, g)

	code, body := get(t, base, "/orders/ORD0001")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "service unavailable", body["error"])

	code, body = get(t, base, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"inventory-service": "healthy", "order-service": "unhealthy"}, body["services"])
}
