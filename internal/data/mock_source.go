package data

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

const mockCandleCount = 500

// MockSource generates a deterministic random walk of daily candles for
// demos and tests
type MockSource struct {
	seed  int64
	start time.Time
}

// NewMockSource creates a mock source. Equal seeds give equal candles.
func NewMockSource(seed int64) *MockSource {
	return &MockSource{
		seed:  seed,
		start: time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

// Name returns the source kind
func (m *MockSource) Name() string { return "mock" }

// LoadCandles returns the last limit candles of the walk
func (m *MockSource) LoadCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(m.seed))
	candles := make([]models.Candle, mockCandleCount)
	price := 100.0
	for i := range candles {
		open := price
		change := rng.NormFloat64() * 0.02 * open
		closePrice := math.Max(1, open+change)
		wick := math.Abs(rng.NormFloat64()) * 0.01 * open

		candles[i] = models.Candle{
			Time:   m.start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   round2(open),
			High:   round2(math.Max(open, closePrice) + wick),
			Low:    round2(math.Max(0.5, math.Min(open, closePrice)-wick)),
			Close:  round2(closePrice),
			Volume: math.Round(1e6 * (1 + rng.Float64())),
		}
		price = closePrice
	}
	return finish(candles, limit)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
