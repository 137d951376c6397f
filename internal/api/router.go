package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/market-indicators/internal/config"
	"github.com/mohamedkhairy/market-indicators/internal/data"
	"github.com/mohamedkhairy/market-indicators/internal/layout"
	"github.com/mohamedkhairy/market-indicators/internal/overlay"
	"github.com/mohamedkhairy/market-indicators/pkg/indicator"
)

// Dependencies holds what the HTTP surface serves
type Dependencies struct {
	Catalog  *indicator.Catalog
	Registry *overlay.Registry
	Layouts  layout.Store
	Source   data.CandleSource // optional
	Symbol   string
	Limit    int
}

// NewRouter builds the routes and wraps them in the middleware chain:
// recover, logging, CORS, rate limit and auth, outermost first
func NewRouter(deps Dependencies, cfg config.HTTPConfig) http.Handler {
	schemas := NewSchemaHandler(deps.Catalog)
	indicators := NewIndicatorHandler(deps.Registry)
	candles := NewCandleHandler(deps.Registry, deps.Source, deps.Symbol, deps.Limit)
	layouts := NewLayoutHandler(deps.Registry, deps.Layouts)

	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(MetricsMiddleware()))

	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Schema endpoints
	v1.HandleFunc("/schemas", schemas.ListSchemas).Methods("GET")
	v1.HandleFunc("/schemas/{type}", schemas.GetSchema).Methods("GET")

	// Indicator instance endpoints
	v1.HandleFunc("/indicators", indicators.ListIndicators).Methods("GET")
	v1.HandleFunc("/indicators", indicators.CreateIndicator).Methods("POST")
	v1.HandleFunc("/indicators/{id}", indicators.GetIndicator).Methods("GET")
	v1.HandleFunc("/indicators/{id}", indicators.DeleteIndicator).Methods("DELETE")
	v1.HandleFunc("/indicators/{id}/config", indicators.UpdateConfig).Methods("PATCH")
	v1.HandleFunc("/indicators/{id}/toggle", indicators.ToggleVisible).Methods("POST")
	v1.HandleFunc("/signals", indicators.Signals).Methods("GET")

	// Candle endpoints
	v1.HandleFunc("/candles", candles.GetCandles).Methods("GET")
	v1.HandleFunc("/candles", candles.ReplaceCandles).Methods("PUT")
	v1.HandleFunc("/candles/reload", candles.ReloadCandles).Methods("POST")

	// Layout endpoints
	v1.HandleFunc("/layouts", layouts.ListLayouts).Methods("GET")
	v1.HandleFunc("/layouts/{name}", layouts.GetLayout).Methods("GET")
	v1.HandleFunc("/layouts/{name}", layouts.SaveLayout).Methods("PUT")
	v1.HandleFunc("/layouts/{name}", layouts.DeleteLayout).Methods("DELETE")
	v1.HandleFunc("/layouts/{name}/apply", layouts.ApplyLayout).Methods("POST")

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if len(deps.Registry.Candles()) == 0 {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	router.Handle("/metrics", promhttp.Handler())

	middlewares := ChainMiddleware(
		ErrorHandlingMiddleware(),
		LoggingMiddleware(),
		CORSMiddleware(cfg.CORSOrigins),
		RateLimitMiddleware(cfg.RateLimitRPS),
		AuthMiddleware(NewAuthManager(cfg.JWTSecret)),
	)
	return middlewares(router)
}
