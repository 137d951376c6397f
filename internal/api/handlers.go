package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/market-indicators/internal/data"
	"github.com/mohamedkhairy/market-indicators/internal/layout"
	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/internal/overlay"
	"github.com/mohamedkhairy/market-indicators/pkg/indicator"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

const maxBodyBytes = 8 << 20

// SchemaHandler serves indicator schemas for config panels
type SchemaHandler struct {
	catalog *indicator.Catalog
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(catalog *indicator.Catalog) *SchemaHandler {
	return &SchemaHandler{catalog: catalog}
}

// ListSchemas handles GET /api/v1/schemas
func (h *SchemaHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas := h.catalog.Schemas()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"schemas": schemas,
		"count":   len(schemas),
	})
}

// GetSchema handles GET /api/v1/schemas/{type}
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	t := indicator.Type(mux.Vars(r)["type"])

	def, err := h.catalog.Get(t)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Unknown indicator type")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"type":     t,
		"schema":   def.Schema(),
		"defaults": def.Schema().Defaults(),
	})
}

// IndicatorHandler manages the indicator instances of the chart
type IndicatorHandler struct {
	registry *overlay.Registry
}

// NewIndicatorHandler creates a new indicator handler
func NewIndicatorHandler(registry *overlay.Registry) *IndicatorHandler {
	return &IndicatorHandler{registry: registry}
}

type createIndicatorRequest struct {
	Type    indicator.Type   `json:"type"`
	Visible *bool            `json:"visible,omitempty"`
	Config  indicator.Config `json:"config,omitempty"`
}

// ListIndicators handles GET /api/v1/indicators[?visible=true][&data=false]
func (h *IndicatorHandler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	var instances []overlay.Instance
	if queryBool(r, "visible", false) {
		instances = h.registry.ListVisible()
	} else {
		instances = h.registry.List()
	}

	if !queryBool(r, "data", true) {
		for i := range instances {
			instances[i].Data = nil
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": instances,
		"count":      len(instances),
	})
}

// CreateIndicator handles POST /api/v1/indicators. Config and visibility
// are optional; an invalid config creates nothing.
func (h *IndicatorHandler) CreateIndicator(w http.ResponseWriter, r *http.Request) {
	var req createIndicatorRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" {
		respondWithError(w, http.StatusBadRequest, "type is required")
		return
	}

	visible := req.Visible == nil || *req.Visible
	id, err := h.registry.AddSpec(overlay.Spec{Type: req.Type, Visible: visible, Config: req.Config})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	inst, _ := h.registry.Get(id)
	logger.WithContext(r.Context()).Info("Indicator added",
		logger.String("id", id),
		logger.String("type", string(req.Type)),
	)
	respondWithJSON(w, http.StatusCreated, inst)
}

// GetIndicator handles GET /api/v1/indicators/{id}
func (h *IndicatorHandler) GetIndicator(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.registry.Get(mux.Vars(r)["id"])
	if !ok {
		respondWithError(w, http.StatusNotFound, "Indicator not found")
		return
	}
	respondWithJSON(w, http.StatusOK, inst)
}

// DeleteIndicator handles DELETE /api/v1/indicators/{id}
func (h *IndicatorHandler) DeleteIndicator(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.registry.Get(id); !ok {
		respondWithError(w, http.StatusNotFound, "Indicator not found")
		return
	}
	h.registry.Remove(id)

	logger.WithContext(r.Context()).Info("Indicator removed", logger.String("id", id))
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Indicator removed"})
}

// UpdateConfig handles PATCH /api/v1/indicators/{id}/config with a partial
// config object
func (h *IndicatorHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var partial indicator.Config
	if err := decodeBody(r, &partial); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inst, err := h.registry.UpdateConfig(mux.Vars(r)["id"], partial)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, inst)
}

// ToggleVisible handles POST /api/v1/indicators/{id}/toggle
func (h *IndicatorHandler) ToggleVisible(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	visible, ok := h.registry.ToggleVisible(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Indicator not found")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"visible": visible,
	})
}

// Signals handles GET /api/v1/signals
func (h *IndicatorHandler) Signals(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.registry.Signals())
}

// CandleHandler replaces or reloads the shared candle set
type CandleHandler struct {
	registry *overlay.Registry
	source   data.CandleSource
	symbol   string
	limit    int
}

// NewCandleHandler creates a new candle handler. source may be nil, which
// disables reloading.
func NewCandleHandler(registry *overlay.Registry, source data.CandleSource, symbol string, limit int) *CandleHandler {
	return &CandleHandler{registry: registry, source: source, symbol: symbol, limit: limit}
}

// GetCandles handles GET /api/v1/candles
func (h *CandleHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	candles := h.registry.Candles()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  h.symbol,
		"candles": candles,
		"count":   len(candles),
	})
}

// ReplaceCandles handles PUT /api/v1/candles with either a candle array or
// {"candles": [...]}. Candles are normalized before use.
func (h *CandleHandler) ReplaceCandles(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var candles []models.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		var wrapped struct {
			Candles []models.Candle `json:"candles"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		candles = wrapped.Candles
	}

	normalized := data.Normalize(candles)
	if len(normalized) == 0 {
		respondWithError(w, http.StatusBadRequest, "No valid candles")
		return
	}
	h.apply(w, r, normalized, len(candles))
}

// ReloadCandles handles POST /api/v1/candles/reload
func (h *CandleHandler) ReloadCandles(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		respondWithError(w, http.StatusServiceUnavailable, "No candle source configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	candles, err := h.source.LoadCandles(ctx, h.symbol, h.limit)
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to reload candles",
			logger.String("source", h.source.Name()),
			logger.ErrorField(err),
		)
		logger.ErrorsTotal.WithLabelValues("api", "candle_reload").Inc()
		respondWithError(w, http.StatusBadGateway, "Failed to load candles")
		return
	}
	h.apply(w, r, candles, len(candles))
}

func (h *CandleHandler) apply(w http.ResponseWriter, r *http.Request, candles []models.Candle, received int) {
	if err := h.registry.SetCandles(candles); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"received": received,
		"count":    len(candles),
		"first":    candles[0].Time,
		"last":     candles[len(candles)-1].Time,
	})
}

// LayoutHandler saves and restores named indicator layouts
type LayoutHandler struct {
	registry *overlay.Registry
	store    layout.Store
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(registry *overlay.Registry, store layout.Store) *LayoutHandler {
	return &LayoutHandler{registry: registry, store: store}
}

// ListLayouts handles GET /api/v1/layouts
func (h *LayoutHandler) ListLayouts(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List(r.Context())
	if err != nil {
		logger.WithContext(r.Context()).Error("Failed to list layouts", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve layouts")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"layouts": names,
		"count":   len(names),
	})
}

// GetLayout handles GET /api/v1/layouts/{name}
func (h *LayoutHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, l)
}

// SaveLayout handles PUT /api/v1/layouts/{name}. With an empty body the
// current registry is captured; otherwise the body's indicators are saved.
func (h *LayoutHandler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var l layout.Layout
	if len(raw) == 0 {
		l = layout.Capture(name, h.registry)
	} else {
		var body layout.Layout
		if err := json.Unmarshal(raw, &body); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		l = layout.Layout{Name: name, Indicators: body.Indicators}
	}

	if err := h.store.Save(r.Context(), l); err != nil {
		respondWithDomainError(w, err)
		return
	}

	logger.WithContext(r.Context()).Info("Layout saved",
		logger.String("layout", name),
		logger.Int("indicators", len(l.Indicators)),
	)
	respondWithJSON(w, http.StatusOK, l)
}

// DeleteLayout handles DELETE /api/v1/layouts/{name}
func (h *LayoutHandler) DeleteLayout(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, err := h.store.Load(r.Context(), name); err != nil {
		respondWithDomainError(w, err)
		return
	}
	if err := h.store.Delete(r.Context(), name); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Layout deleted"})
}

// ApplyLayout handles POST /api/v1/layouts/{name}/apply
func (h *LayoutHandler) ApplyLayout(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	if err := layout.Apply(l, h.registry); err != nil {
		respondWithDomainError(w, err)
		return
	}

	instances := h.registry.List()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": instances,
		"count":      len(instances),
	})
}

// Helper functions

// respondWithDomainError maps sentinel errors to status codes
func respondWithDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInstanceNotFound):
		respondWithError(w, http.StatusNotFound, "Indicator not found")
	case errors.Is(err, models.ErrLayoutNotFound):
		respondWithError(w, http.StatusNotFound, "Layout not found")
	case errors.Is(err, indicator.ErrUnknownIndicator),
		errors.Is(err, indicator.ErrInvalidConfig),
		errors.Is(err, indicator.ErrUnknownField),
		errors.Is(err, models.ErrInvalidLayout),
		errors.Is(err, models.ErrUnsortedCandles):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Request failed", logger.ErrorField(err))
		logger.ErrorsTotal.WithLabelValues("api", "internal").Inc()
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dest)
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
