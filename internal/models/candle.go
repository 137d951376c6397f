package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Candle is one OHLCV bucket. Time is the ordering key supplied by the data
// source: an ISO date, an RFC3339 timestamp or unix seconds.
type Candle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Validate validates a Candle
func (c *Candle) Validate() error {
	if strings.TrimSpace(c.Time) == "" {
		return ErrInvalidTimestamp
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidPrice
		}
	}
	if c.High < c.Low {
		return ErrInvalidCandle
	}
	if c.Volume < 0 || math.IsNaN(c.Volume) {
		return ErrInvalidVolume
	}
	return nil
}

// Timestamp parses the candle time key
func (c *Candle) Timestamp() (time.Time, error) {
	return ParseTime(c.Time)
}

var timeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses a candle time key. Plain integers are unix seconds,
// or unix milliseconds when they are too large to be seconds.
func ParseTime(key string) (time.Time, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	if n, err := strconv.ParseInt(key, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, key); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// CompareTime orders two time keys. Keys that parse are compared as instants,
// anything else falls back to string order.
func CompareTime(a, b string) int {
	ta, errA := ParseTime(a)
	tb, errB := ParseTime(b)
	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

// CheckOrdered verifies that candles are strictly ascending by time
func CheckOrdered(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if CompareTime(candles[i-1].Time, candles[i].Time) >= 0 {
			return ErrUnsortedCandles
		}
	}
	return nil
}

// Times returns the time keys of the candles
func Times(candles []Candle) []string {
	out := make([]string, len(candles))
	for i := range candles {
		out[i] = candles[i].Time
	}
	return out
}

// Closes returns the close prices
func Closes(candles []Candle) []float64 {
	return extract(candles, func(c *Candle) float64 { return c.Close })
}

// Opens returns the open prices
func Opens(candles []Candle) []float64 {
	return extract(candles, func(c *Candle) float64 { return c.Open })
}

// Highs returns the high prices
func Highs(candles []Candle) []float64 {
	return extract(candles, func(c *Candle) float64 { return c.High })
}

// Lows returns the low prices
func Lows(candles []Candle) []float64 {
	return extract(candles, func(c *Candle) float64 { return c.Low })
}

// Volumes returns the volumes
func Volumes(candles []Candle) []float64 {
	return extract(candles, func(c *Candle) float64 { return c.Volume })
}

// PriceSources lists the accepted names for Source
var PriceSources = []string{"close", "open", "high", "low", "hl2", "hlc3", "ohlc4"}

// Source extracts a named price source. Unknown names fall back to close.
func Source(candles []Candle, name string) []float64 {
	switch name {
	case "open":
		return Opens(candles)
	case "high":
		return Highs(candles)
	case "low":
		return Lows(candles)
	case "hl2":
		return extract(candles, func(c *Candle) float64 { return (c.High + c.Low) / 2 })
	case "hlc3":
		return extract(candles, func(c *Candle) float64 { return (c.High + c.Low + c.Close) / 3 })
	case "ohlc4":
		return extract(candles, func(c *Candle) float64 { return (c.Open + c.High + c.Low + c.Close) / 4 })
	default:
		return Closes(candles)
	}
}

func extract(candles []Candle, fn func(c *Candle) float64) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = fn(&candles[i])
	}
	return out
}
