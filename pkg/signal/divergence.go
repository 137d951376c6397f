package signal

import (
	"math"
	"sort"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

// PivotKind tells pivot highs from pivot lows
type PivotKind string

const (
	PivotHigh PivotKind = "high"
	PivotLow  PivotKind = "low"
)

// Pivot is a confirmed local extreme of price with the oscillator value at
// the same bar
type Pivot struct {
	Index      int       `json:"index"`
	Time       string    `json:"time"`
	Price      float64   `json:"price"`
	Oscillator float64   `json:"oscillator"`
	Kind       PivotKind `json:"kind"`
}

// DivergenceParams configures pivot confirmation and pair filtering
type DivergenceParams struct {
	LookbackLeft  int  `json:"lookbackLeft"`
	LookbackRight int  `json:"lookbackRight"`
	RangeMin      int  `json:"rangeMin"`
	RangeMax      int  `json:"rangeMax"`
	DontTouchZero bool `json:"dontTouchZero"`
}

// DefaultDivergenceParams returns the commonly used pivot settings
func DefaultDivergenceParams() DivergenceParams {
	return DivergenceParams{
		LookbackLeft:  5,
		LookbackRight: 5,
		RangeMin:      5,
		RangeMax:      60,
		DontTouchZero: true,
	}
}

// Divergence pairs two consecutive pivots of the same kind whose price and
// oscillator extremes disagree
type Divergence struct {
	Direction Direction `json:"direction"`
	Start     Pivot     `json:"start"`
	End       Pivot     `json:"end"`
	Bars      int       `json:"bars"`
}

// FindPivots returns pivot lows and highs in chronological order. Bar i is a
// pivot low when its low is strictly below every low in [i-left, i-1] and
// [i+1, i+right]; highs mirror that. Bars without a defined oscillator value
// are never pivots.
func FindPivots(candles []models.Candle, osc []float64, left, right int) (lows, highs []Pivot) {
	if left < 0 {
		left = 0
	}
	if right < 0 {
		right = 0
	}

	n := len(candles)
	if len(osc) < n {
		n = len(osc)
	}

	for i := left; i+right < n; i++ {
		if math.IsNaN(osc[i]) {
			continue
		}

		isLow, isHigh := true, true
		for j := i - left; j <= i+right; j++ {
			if j == i {
				continue
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if !isLow && !isHigh {
				break
			}
		}

		if isLow {
			lows = append(lows, Pivot{
				Index:      i,
				Time:       candles[i].Time,
				Price:      candles[i].Low,
				Oscillator: osc[i],
				Kind:       PivotLow,
			})
		}
		if isHigh {
			highs = append(highs, Pivot{
				Index:      i,
				Time:       candles[i].Time,
				Price:      candles[i].High,
				Oscillator: osc[i],
				Kind:       PivotHigh,
			})
		}
	}
	return lows, highs
}

// DetectDivergences checks each pair of consecutive pivots. Bullish: price
// makes a lower low while the oscillator makes a higher low below zero.
// Bearish: price makes a higher high while the oscillator makes a lower high
// above zero. Results are sorted by end bar, most recent first.
func DetectDivergences(candles []models.Candle, osc []float64, p DivergenceParams) []Divergence {
	lows, highs := FindPivots(candles, osc, p.LookbackLeft, p.LookbackRight)

	var out []Divergence
	for k := 1; k < len(lows); k++ {
		prev, curr := lows[k-1], lows[k]
		if curr.Price < prev.Price &&
			curr.Oscillator > prev.Oscillator &&
			curr.Oscillator < 0 &&
			acceptPair(osc, prev, curr, p) {
			out = append(out, Divergence{Direction: Bullish, Start: prev, End: curr, Bars: curr.Index - prev.Index})
		}
	}
	for k := 1; k < len(highs); k++ {
		prev, curr := highs[k-1], highs[k]
		if curr.Price > prev.Price &&
			curr.Oscillator < prev.Oscillator &&
			curr.Oscillator > 0 &&
			acceptPair(osc, prev, curr, p) {
			out = append(out, Divergence{Direction: Bearish, Start: prev, End: curr, Bars: curr.Index - prev.Index})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].End.Index > out[j].End.Index
	})
	return out
}

func acceptPair(osc []float64, prev, curr Pivot, p DivergenceParams) bool {
	distance := curr.Index - prev.Index
	if distance < p.RangeMin || distance > p.RangeMax {
		return false
	}
	if p.DontTouchZero && touchesZero(osc, prev.Index, curr.Index) {
		return false
	}
	return true
}

// touchesZero reports whether osc holds both a positive and a negative value
// in [from, to]
func touchesZero(osc []float64, from, to int) bool {
	var positive, negative bool
	for i := from; i <= to && i < len(osc); i++ {
		v := osc[i]
		if math.IsNaN(v) {
			continue
		}
		if v > 0 {
			positive = true
		} else if v < 0 {
			negative = true
		}
		if positive && negative {
			return true
		}
	}
	return false
}
