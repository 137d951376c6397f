// Package data loads candles for the chart from files, PostgreSQL or a
// synthetic generator. Every source hands back normalized candles: sorted
// ascending by time, one candle per time key, invalid rows dropped.
package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/internal/storage"
)

var (
	// ErrUnknownSource is returned for an unregistered source kind
	ErrUnknownSource = errors.New("unknown data source")
	// ErrUnsupportedFormat is returned for files that are neither JSON nor CSV
	ErrUnsupportedFormat = errors.New("unsupported candle file format")
	// ErrNoCandles is returned when a source yields nothing usable
	ErrNoCandles = errors.New("no valid candles")
)

// CandleSource loads the candle set the indicators are computed on
type CandleSource interface {
	// LoadCandles returns up to limit of the most recent candles for symbol,
	// normalized. limit <= 0 loads everything.
	LoadCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error)

	// Name returns the source kind
	Name() string
}

// SourceConfig holds what the built-in sources need
type SourceConfig struct {
	Path    string                // file source
	Storage storage.CandleStorage // postgres source
	Seed    int64                 // mock source
}

// SourceFactory creates sources by kind
type SourceFactory struct {
	mu        sync.RWMutex
	factories map[string]func(SourceConfig) (CandleSource, error)
}

// NewSourceFactory creates a factory with the built-in sources registered
func NewSourceFactory() *SourceFactory {
	f := &SourceFactory{
		factories: make(map[string]func(SourceConfig) (CandleSource, error)),
	}

	f.Register("file", func(cfg SourceConfig) (CandleSource, error) {
		return NewFileSource(cfg.Path)
	})
	f.Register("postgres", func(cfg SourceConfig) (CandleSource, error) {
		if cfg.Storage == nil {
			return nil, errors.New("postgres source requires a candle storage")
		}
		return NewStorageSource(cfg.Storage), nil
	})
	f.Register("mock", func(cfg SourceConfig) (CandleSource, error) {
		return NewMockSource(cfg.Seed), nil
	})

	return f
}

// Create creates a source of the given kind
func (f *SourceFactory) Create(kind string, cfg SourceConfig) (CandleSource, error) {
	f.mu.RLock()
	factoryFunc, exists := f.factories[kind]
	f.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, kind)
	}
	return factoryFunc(cfg)
}

// Register registers a custom source factory function
func (f *SourceFactory) Register(kind string, factoryFunc func(SourceConfig) (CandleSource, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.factories[kind]; exists {
		return errors.New("source kind already registered: " + kind)
	}
	f.factories[kind] = factoryFunc
	return nil
}

// Kinds returns the registered source kinds, sorted
func (f *SourceFactory) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]string, 0, len(f.factories))
	for kind := range f.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// StorageSource reads candles from a CandleStorage such as PostgreSQL
type StorageSource struct {
	store storage.CandleStorage
}

// NewStorageSource wraps a candle storage
func NewStorageSource(store storage.CandleStorage) *StorageSource {
	return &StorageSource{store: store}
}

// Name returns the source kind
func (s *StorageSource) Name() string { return "postgres" }

// LoadCandles queries the storage and normalizes the result
func (s *StorageSource) LoadCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	if symbol == "" {
		return nil, models.ErrInvalidSymbol
	}
	raw, err := s.store.GetLatestCandles(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("load %s candles: %w", symbol, err)
	}
	return finish(raw, limit)
}

// finish normalizes and trims a loaded candle set
func finish(raw []models.Candle, limit int) ([]models.Candle, error) {
	candles := Normalize(raw)
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
