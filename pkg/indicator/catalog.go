package indicator

import (
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// Type names an indicator definition
type Type string

const (
	TypeSMA         Type = "sma"
	TypeEMA         Type = "ema"
	TypeMACD        Type = "macd"
	TypeRSI         Type = "rsi"
	TypeVolume      Type = "volume"
	TypeMarketBias  Type = "market-bias"
	TypePositioning Type = "positioning"
	TypeATR         Type = "atr"
	TypeVWAP        Type = "vwap"
	TypeROC         Type = "roc"
)

// Definition is a config schema plus a pure compute function. Compute must
// not retain or modify candles or cfg.
type Definition interface {
	Type() Type
	Schema() Schema
	Compute(candles []models.Candle, cfg Config) (*Output, error)
}

// TypeSchema pairs a type with its schema for listing
type TypeSchema struct {
	Type   Type   `json:"type"`
	Schema Schema `json:"schema"`
}

// Catalog holds the known definitions in registration order
type Catalog struct {
	mu    sync.RWMutex
	defs  map[Type]Definition
	order []Type
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		defs: make(map[Type]Definition),
	}
}

// DefaultCatalog returns a catalog with every built-in definition
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, def := range []Definition{
		NewMovingAverage(TypeSMA),
		NewMovingAverage(TypeEMA),
		NewMACD(),
		NewRSI(),
		NewVolume(),
		NewMarketBias(),
		NewPositioning(),
		NewATR(),
		NewVWAP(),
		NewRateOfChange(),
	} {
		// built-in types are distinct
		_ = c.Register(def)
	}
	return c
}

// Register adds a definition
func (c *Catalog) Register(def Definition) error {
	if def == nil {
		return fmt.Errorf("definition cannot be nil")
	}

	t := def.Type()
	if t == "" {
		return fmt.Errorf("definition type cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[t]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateIndicator, t)
	}

	c.defs[t] = def
	c.order = append(c.order, t)
	return nil
}

// Get retrieves a definition by type
func (c *Catalog) Get(t Type) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, exists := c.defs[t]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndicator, t)
	}
	return def, nil
}

// Types returns the registered types in registration order
func (c *Catalog) Types() []Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Type, len(c.order))
	copy(out, c.order)
	return out
}

// Schemas lists every type with its schema
func (c *Catalog) Schemas() []TypeSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]TypeSchema, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, TypeSchema{Type: t, Schema: c.defs[t].Schema()})
	}
	return out
}

// Defaults returns the default config of a type
func (c *Catalog) Defaults(t Type) (Config, error) {
	def, err := c.Get(t)
	if err != nil {
		return nil, err
	}
	return def.Schema().Defaults(), nil
}

// Compute runs the definition for t and records compute metrics
func (c *Catalog) Compute(t Type, candles []models.Candle, cfg Config) (*Output, error) {
	def, err := c.Get(t)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := def.Compute(candles, cfg)
	logger.ComputeDuration.WithLabelValues(string(t)).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.ComputeTotal.WithLabelValues(string(t), "error").Inc()
		return nil, fmt.Errorf("compute %s: %w", t, err)
	}
	logger.ComputeTotal.WithLabelValues(string(t), "ok").Inc()
	return out, nil
}
