package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/market-indicators/internal/config"
	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

var (
	postgresQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_query_total",
			Help: "Total number of candle queries against PostgreSQL",
		},
		[]string{"status"}, // "success" or "error"
	)

	postgresQueryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postgres_query_latency_seconds",
			Help:    "Candle query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
	)
)

const latestCandlesQuery = `
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1
		ORDER BY time DESC
		LIMIT $2
	`

const allCandlesQuery = `
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1
		ORDER BY time DESC
	`

// PostgresClient implements CandleStorage on a candles table keyed by
// (symbol, time)
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient opens and pings a PostgreSQL connection pool
func NewPostgresClient(dbConfig config.DatabaseConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return NewPostgresClientFromDB(db), nil
}

// NewPostgresClientFromDB wraps an already opened database handle
func NewPostgresClientFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// GetLatestCandles retrieves the latest N candles for a symbol
func (p *PostgresClient) GetLatestCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	if symbol == "" {
		return nil, models.ErrInvalidSymbol
	}

	start := time.Now()
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = p.db.QueryContext(ctx, latestCandlesQuery, symbol, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, allCandlesQuery, symbol)
	}
	postgresQueryLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		postgresQueryTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to query latest candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var (
			c  models.Candle
			ts time.Time
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			postgresQueryTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		c.Time = TimeKey(ts)
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		postgresQueryTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	postgresQueryTotal.WithLabelValues("success").Inc()

	// Reverse to get chronological order
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	return p.db.Close()
}

// TimeKey renders a stored timestamp as a candle time key: a plain date
// for midnight UTC buckets, RFC3339 otherwise
func TimeKey(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
