package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/market-indicators/internal/config"
	"github.com/mohamedkhairy/market-indicators/internal/data"
	"github.com/mohamedkhairy/market-indicators/internal/layout"
	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/internal/overlay"
	"github.com/mohamedkhairy/market-indicators/pkg/indicator"
)

func chartCandles(n int) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		price := 100 + float64(i%9) + float64(i)/3
		out[i] = models.Candle{
			Time:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   price - 0.4,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000 + float64(i),
		}
	}
	return out
}

type testServer struct {
	handler  http.Handler
	registry *overlay.Registry
	layouts  *layout.MemoryStore
}

func newTestServer(t *testing.T, candles []models.Candle) *testServer {
	t.Helper()
	registry := overlay.NewRegistry(indicator.DefaultCatalog(),
		overlay.WithIDGenerator(overlay.NewCounterGenerator("ind")),
		overlay.WithCandles(candles),
	)
	layouts := layout.NewMemoryStore()
	handler := NewRouter(Dependencies{
		Catalog:  indicator.DefaultCatalog(),
		Registry: registry,
		Layouts:  layouts,
		Source:   data.NewMockSource(3),
		Symbol:   "TEST",
		Limit:    120,
	}, config.HTTPConfig{CORSOrigins: []string{"*"}})
	return &testServer{handler: handler, registry: registry, layouts: layouts}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSchemas(t *testing.T) {
	s := newTestServer(t, chartCandles(60))

	w := s.do(t, "GET", "/api/v1/schemas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(len(indicator.DefaultCatalog().Types())), body["count"])

	w = s.do(t, "GET", "/api/v1/schemas/rsi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "rsi", body["type"])
	defaults := body["defaults"].(map[string]interface{})
	assert.Equal(t, 14.0, defaults["period"])

	w = s.do(t, "GET", "/api/v1/schemas/ichimoku", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndicatorLifecycle(t *testing.T) {
	s := newTestServer(t, chartCandles(80))

	w := s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{"type": "ema"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "ind-1", created["id"])
	assert.Equal(t, true, created["visible"])
	assert.NotNil(t, created["data"])

	w = s.do(t, "GET", "/api/v1/indicators/ind-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "PATCH", "/api/v1/indicators/ind-1/config", map[string]interface{}{"period": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	inst, ok := s.registry.Get("ind-1")
	require.True(t, ok)
	assert.Equal(t, 10, inst.Config.Int("period"))
	assert.Len(t, inst.Data.Lines["value"], 71)

	w = s.do(t, "POST", "/api/v1/indicators/ind-1/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["visible"])

	w = s.do(t, "GET", "/api/v1/indicators?visible=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["count"])

	w = s.do(t, "DELETE", "/api/v1/indicators/ind-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.registry.Len())
}

func TestCreateIndicator_WithConfigAndVisibility(t *testing.T) {
	s := newTestServer(t, chartCandles(80))

	w := s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{
		"type":    "rsi",
		"visible": false,
		"config":  map[string]interface{}{"period": 7, "smoothing": "None"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	inst, ok := s.registry.Get("ind-1")
	require.True(t, ok)
	assert.False(t, inst.Visible)
	assert.Equal(t, 7, inst.Config.Int("period"))
}

func TestCreateIndicator_Errors(t *testing.T) {
	s := newTestServer(t, chartCandles(40))

	assert.Equal(t, http.StatusBadRequest, s.do(t, "POST", "/api/v1/indicators", "{").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{"type": "ichimoku"}).Code)

	// a rejected config does not leave a half-created instance behind
	w := s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{
		"type":   "sma",
		"config": map[string]interface{}{"bogus": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, s.registry.Len())
}

// overlayOperations reads overlay_operations_total{operation=op}
func overlayOperations(t *testing.T, op string) float64 {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "overlay_operations_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "operation" && lp.GetValue() == op {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCreateIndicator_InvalidConfigIsAtomic(t *testing.T) {
	s := newTestServer(t, chartCandles(40))

	ops := func(op string) float64 {
		return overlayOperations(t, op)
	}
	before := map[string]float64{}
	for _, op := range []string{"add", "update", "toggle", "remove"} {
		before[op] = ops(op)
	}

	w := s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{
		"type":    "sma",
		"visible": false,
		"config":  map[string]interface{}{"period": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, s.registry.Len())
	for op, v := range before {
		assert.Equal(t, v, ops(op), "operation %s was recorded", op)
	}

	w = s.do(t, "POST", "/api/v1/indicators", map[string]interface{}{"type": "sma"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ind-1", decode(t, w)["id"])
	assert.Equal(t, before["add"]+1, ops("add"))
	assert.Equal(t, before["update"], ops("update"))
}

func TestUnknownInstanceIs404(t *testing.T) {
	s := newTestServer(t, chartCandles(40))

	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", "/api/v1/indicators/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "DELETE", "/api/v1/indicators/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "POST", "/api/v1/indicators/nope/toggle", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "PATCH", "/api/v1/indicators/nope/config", map[string]interface{}{"period": 3}).Code)
}

func TestUpdateConfig_Invalid(t *testing.T) {
	s := newTestServer(t, chartCandles(40))
	id, err := s.registry.Add(indicator.TypeSMA)
	require.NoError(t, err)

	w := s.do(t, "PATCH", "/api/v1/indicators/"+id+"/config", map[string]interface{}{"type": "HMA"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "PATCH", "/api/v1/indicators/"+id+"/config", map[string]interface{}{"period": "ten"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignals(t *testing.T) {
	s := newTestServer(t, chartCandles(120))
	_, err := s.registry.Add(indicator.TypeMACD)
	require.NoError(t, err)

	w := s.do(t, "GET", "/api/v1/signals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "crosses")
	assert.Contains(t, body, "divergences")
}

func TestCandles_ReplaceAndReload(t *testing.T) {
	s := newTestServer(t, chartCandles(40))
	id, err := s.registry.Add(indicator.TypeSMA)
	require.NoError(t, err)

	// unordered with a duplicate; normalized before use
	candles := chartCandles(30)
	shuffled := append([]models.Candle{candles[29], candles[0]}, candles[1:29]...)
	shuffled = append(shuffled, candles[5])

	w := s.do(t, "PUT", "/api/v1/candles", map[string]interface{}{"candles": shuffled})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 31.0, body["received"])
	assert.Equal(t, 30.0, body["count"])
	assert.Len(t, s.registry.Candles(), 30)

	inst, _ := s.registry.Get(id)
	assert.Len(t, inst.Data.Lines["value"], 11)

	w = s.do(t, "PUT", "/api/v1/candles", "[]")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/v1/candles/reload", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, s.registry.Candles(), 120)

	w = s.do(t, "GET", "/api/v1/candles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TEST", decode(t, w)["symbol"])
}

func TestLayouts(t *testing.T) {
	s := newTestServer(t, chartCandles(80))
	_, err := s.registry.Add(indicator.TypeEMA)
	require.NoError(t, err)
	_, err = s.registry.Add(indicator.TypeRSI)
	require.NoError(t, err)

	// capture current registry
	w := s.do(t, "PUT", "/api/v1/layouts/swing", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// explicit body
	w = s.do(t, "PUT", "/api/v1/layouts/minimal", map[string]interface{}{
		"indicators": []map[string]interface{}{{"type": "sma", "visible": true}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// a body is saved as given instead of the registry contents
	minimal, err := s.layouts.Load(context.Background(), "minimal")
	require.NoError(t, err)
	require.Len(t, minimal.Indicators, 1)
	assert.Equal(t, indicator.TypeSMA, minimal.Indicators[0].Type)
	swing, err := s.layouts.Load(context.Background(), "swing")
	require.NoError(t, err)
	assert.Len(t, swing.Indicators, 2)

	w = s.do(t, "GET", "/api/v1/layouts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"minimal", "swing"}, decode(t, w)["layouts"])

	w = s.do(t, "POST", "/api/v1/layouts/minimal/apply", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 1, s.registry.Len())
	assert.Equal(t, indicator.TypeSMA, s.registry.List()[0].Type)

	w = s.do(t, "POST", "/api/v1/layouts/swing/apply", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.registry.Len())

	w = s.do(t, "GET", "/api/v1/layouts/swing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["indicators"], 2)

	w = s.do(t, "DELETE", "/api/v1/layouts/swing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", "/api/v1/layouts/swing", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "DELETE", "/api/v1/layouts/swing", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "POST", "/api/v1/layouts/swing/apply", nil).Code)
}

func TestLayouts_Invalid(t *testing.T) {
	s := newTestServer(t, chartCandles(40))

	w := s.do(t, "PUT", "/api/v1/layouts/bad", map[string]interface{}{
		"indicators": []map[string]interface{}{{"visible": true}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, s.layouts.Save(context.Background(), layout.Layout{
		Name:       "stale",
		Indicators: []overlay.Spec{{Type: "ichimoku"}},
	}))
	w = s.do(t, "POST", "/api/v1/layouts/stale/apply", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/health", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/live", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, "GET", "/ready", nil).Code)

	require.NoError(t, s.registry.SetCandles(chartCandles(5)))
	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/ready", nil).Code)

	w := s.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestRouter_AuthEnforced(t *testing.T) {
	registry := overlay.NewRegistry(indicator.DefaultCatalog())
	handler := NewRouter(Dependencies{
		Catalog:  indicator.DefaultCatalog(),
		Registry: registry,
		Layouts:  layout.NewMemoryStore(),
	}, config.HTTPConfig{JWTSecret: "secret"})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/schemas", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
