package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/db"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/inventory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newInventoryRouter(t *testing.T) (*gin.Engine, *inventory.Ledger) {
	t.Helper()
	records, err := inventory.LoadSeed("")
	require.NoError(t, err)
	ledger := inventory.NewLedger(db.NewStockRepository(), zap.NewNop())
	require.NoError(t, ledger.Seed(records))

	router := gin.New()
	RegisterInventoryRoutes(router, NewInventoryHandler(ledger))
	return router, ledger
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}
