package data

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// Normalize sorts candles ascending by time, keeps the last candle for a
// repeated time key and drops candles that fail validation. The input is
// not modified.
func Normalize(candles []models.Candle) []models.Candle {
	byKey := make(map[string]int, len(candles))
	out := make([]models.Candle, 0, len(candles))
	dropped := 0

	for _, c := range candles {
		c.Time = strings.TrimSpace(c.Time)
		if err := c.Validate(); err != nil {
			dropped++
			continue
		}
		if _, err := models.ParseTime(c.Time); err != nil {
			dropped++
			continue
		}
		if i, seen := byKey[c.Time]; seen {
			out[i] = c
			continue
		}
		byKey[c.Time] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return models.CompareTime(out[i].Time, out[j].Time) < 0
	})

	// distinct keys can still name the same instant ("2024-01-02" and
	// "2024-01-02T00:00:00Z"); the later one wins
	deduped := out[:0]
	for _, c := range out {
		if n := len(deduped); n > 0 && models.CompareTime(deduped[n-1].Time, c.Time) == 0 {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	if dropped > 0 {
		logger.Warn("Dropped invalid candles",
			logger.Int("dropped", dropped),
			logger.Int("kept", len(deduped)),
		)
	}
	return deduped
}

// field aliases accepted in candle records
var (
	timeKeys   = []string{"time", "t", "date", "timestamp", "datetime"}
	openKeys   = []string{"open", "o"}
	highKeys   = []string{"high", "h"}
	lowKeys    = []string{"low", "l"}
	closeKeys  = []string{"close", "c", "price"}
	volumeKeys = []string{"volume", "v", "vol"}
)

// decodeJSON accepts either an array of candle objects or an object with a
// "candles" array. Field names are matched case-insensitively against common
// aliases and numbers may be quoted.
func decodeJSON(raw []byte) ([]models.Candle, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(raw, &records); err != nil {
		var wrapped struct {
			Candles []map[string]interface{} `json:"candles"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode candles: %w", err)
		}
		records = wrapped.Candles
	}

	candles := make([]models.Candle, 0, len(records))
	for i, rec := range records {
		c, err := candleFromRecord(lowerKeys(rec))
		if err != nil {
			logger.Debug("Skipping candle record",
				logger.Int("index", i),
				logger.ErrorField(err),
			)
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func lowerKeys(rec map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func candleFromRecord(rec map[string]interface{}) (models.Candle, error) {
	var c models.Candle

	rawTime, ok := lookup(rec, timeKeys)
	if !ok {
		return c, fmt.Errorf("%w: missing time", models.ErrInvalidTimestamp)
	}
	switch v := rawTime.(type) {
	case string:
		c.Time = v
	case float64:
		c.Time = strconv.FormatInt(int64(v), 10)
	default:
		return c, fmt.Errorf("%w: %v", models.ErrInvalidTimestamp, rawTime)
	}

	var err error
	if c.Open, err = number(rec, openKeys, true); err != nil {
		return c, err
	}
	if c.High, err = number(rec, highKeys, true); err != nil {
		return c, err
	}
	if c.Low, err = number(rec, lowKeys, true); err != nil {
		return c, err
	}
	if c.Close, err = number(rec, closeKeys, true); err != nil {
		return c, err
	}
	if c.Volume, err = number(rec, volumeKeys, false); err != nil {
		return c, err
	}
	return c, nil
}

func lookup(rec map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// number reads a numeric field. Optional fields default to 0.
func number(rec map[string]interface{}, keys []string, required bool) (float64, error) {
	raw, ok := lookup(rec, keys)
	if !ok {
		if required {
			return 0, fmt.Errorf("%w: missing %s", models.ErrInvalidPrice, keys[0])
		}
		return 0, nil
	}
	return parseNumber(keys[0], raw)
}

func parseNumber(name string, raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", models.ErrInvalidPrice, name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s %v", models.ErrInvalidPrice, name, raw)
	}
}
