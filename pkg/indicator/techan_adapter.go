package indicator

import (
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

// syntheticEpoch anchors candles whose time keys do not parse
var syntheticEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// toTimeSeries converts ordered candles into a techan series. Every candle
// must land in the series, so when any time key fails to parse the whole
// series falls back to consecutive synthetic days.
func toTimeSeries(candles []models.Candle) *techan.TimeSeries {
	starts, ok := parseStarts(candles)
	if !ok {
		starts = make([]time.Time, len(candles))
		for i := range starts {
			starts[i] = syntheticEpoch.AddDate(0, 0, i)
		}
	}

	ts := techan.NewTimeSeries()
	for i := range candles {
		duration := 24 * time.Hour
		if i+1 < len(starts) {
			duration = starts[i+1].Sub(starts[i])
		}

		candle := techan.NewCandle(techan.NewTimePeriod(starts[i], duration))
		candle.OpenPrice = big.NewDecimal(candles[i].Open)
		candle.MaxPrice = big.NewDecimal(candles[i].High)
		candle.MinPrice = big.NewDecimal(candles[i].Low)
		candle.ClosePrice = big.NewDecimal(candles[i].Close)
		candle.Volume = big.NewDecimal(candles[i].Volume)

		ts.AddCandle(candle)
	}
	return ts
}

func parseStarts(candles []models.Candle) ([]time.Time, bool) {
	out := make([]time.Time, len(candles))
	for i := range candles {
		t, err := models.ParseTime(candles[i].Time)
		if err != nil {
			return nil, false
		}
		if i > 0 && !t.After(out[i-1]) {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

// calculateAll evaluates a techan indicator at indexes [from, n)
func calculateAll(ind techan.Indicator, from, n int) []float64 {
	if from >= n {
		return []float64{}
	}
	out := make([]float64, 0, n-from)
	for i := from; i < n; i++ {
		out = append(out, ind.Calculate(i).Float())
	}
	return out
}
