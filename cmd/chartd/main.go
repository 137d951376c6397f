package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mohamedkhairy/market-indicators/internal/api"
	"github.com/mohamedkhairy/market-indicators/internal/config"
	"github.com/mohamedkhairy/market-indicators/internal/data"
	"github.com/mohamedkhairy/market-indicators/internal/layout"
	"github.com/mohamedkhairy/market-indicators/internal/overlay"
	"github.com/mohamedkhairy/market-indicators/internal/storage"
	"github.com/mohamedkhairy/market-indicators/pkg/indicator"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting chart service",
		logger.Int("port", cfg.HTTP.Port),
		logger.String("data_source", cfg.Data.Source),
		logger.String("layout_store", cfg.Layout.Store),
		logger.Bool("auth", cfg.HTTP.JWTSecret != ""),
	)

	// Candle source
	sourceCfg := data.SourceConfig{Path: cfg.Data.Path, Seed: 1}
	if cfg.Data.Source == config.SourcePostgres {
		pg, err := storage.NewPostgresClient(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", logger.ErrorField(err))
		}
		defer pg.Close()
		sourceCfg.Storage = pg
	}
	source, err := data.NewSourceFactory().Create(cfg.Data.Source, sourceCfg)
	if err != nil {
		logger.Fatal("Failed to create candle source", logger.ErrorField(err))
	}

	// Registry
	catalog := indicator.DefaultCatalog()
	var ids overlay.IDGenerator = overlay.UUIDGenerator{}
	if cfg.Registry.IDScheme == config.IDSchemeCounter {
		ids = overlay.NewCounterGenerator(cfg.Registry.IDPrefix)
	}
	registry := overlay.NewRegistry(catalog, overlay.WithIDGenerator(ids))

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	candles, err := source.LoadCandles(loadCtx, cfg.Data.Symbol, cfg.Data.Limit)
	cancelLoad()
	if err != nil {
		// the service still starts; candles can be pushed or reloaded later
		logger.Error("Failed to load initial candles",
			logger.String("source", source.Name()),
			logger.ErrorField(err),
		)
	} else if err := registry.SetCandles(candles); err != nil {
		logger.Error("Failed to apply initial candles", logger.ErrorField(err))
	}

	// Preset
	if cfg.Layout.PresetPath != "" {
		preset, err := layout.LoadPreset(cfg.Layout.PresetPath)
		if err != nil {
			logger.Fatal("Failed to load layout preset",
				logger.String("path", cfg.Layout.PresetPath),
				logger.ErrorField(err),
			)
		}
		if err := layout.Apply(preset, registry); err != nil {
			logger.Fatal("Failed to apply layout preset", logger.ErrorField(err))
		}
		logger.Info("Applied layout preset",
			logger.String("layout", preset.Name),
			logger.Int("indicators", registry.Len()),
		)
	}

	// Layout store
	var layouts layout.Store = layout.NewMemoryStore()
	if cfg.Layout.Store == config.StoreRedis {
		redisClient, err := storage.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to initialize Redis client", logger.ErrorField(err))
		}
		defer redisClient.Close()

		layouts, err = layout.NewRedisStore(redisClient, cfg.Layout.KeyPrefix, 0)
		if err != nil {
			logger.Fatal("Failed to initialize Redis layout store", logger.ErrorField(err))
		}
	}

	handler := api.NewRouter(api.Dependencies{
		Catalog:  catalog,
		Registry: registry,
		Layouts:  layouts,
		Source:   source,
		Symbol:   cfg.Data.Symbol,
		Limit:    cfg.Data.Limit,
	}, cfg.HTTP)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		ErrorLog:     zap.NewStdLog(logger.Get()),
	}

	go func() {
		logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down chart service")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.ErrorField(err))
	}

	logger.Info("Chart service stopped")
}
