package series

import (
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
)

// SMA is the arithmetic mean of each trailing window
func SMA(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}
	return trim(talib.Sma(values, period), period)
}

// EMA is exponential smoothing seeded with the SMA of the first period values,
// multiplier 2/(period+1)
func EMA(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}
	return trim(talib.Ema(values, period), period)
}

// WMA weights each window linearly 1..period from oldest to newest
func WMA(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}
	return trim(talib.Wma(values, period), period)
}

// RMA is Wilder smoothing: seeded with the mean of the first period values,
// then prev*(period-1)+value over period.
func RMA(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}

	out := make([]float64, 0, len(values)-period+1)
	prev := floats.Sum(values[:period]) / float64(period)
	out = append(out, prev)

	p := float64(period)
	for _, v := range values[period:] {
		prev = (prev*(p-1) + v) / p
		out = append(out, prev)
	}
	return out
}

// VWMA is the volume weighted mean of each window. A window with no volume
// yields its last value.
func VWMA(values, volumes []float64, period int) []float64 {
	n := len(values)
	if len(volumes) < n {
		n = len(volumes)
	}
	if insufficient(n, period) {
		return []float64{}
	}

	out := make([]float64, 0, n-period+1)
	for end := period; end <= n; end++ {
		window := values[end-period : end]
		weights := volumes[end-period : end]

		volumeSum := floats.Sum(weights)
		if volumeSum == 0 {
			out = append(out, window[period-1])
			continue
		}
		out = append(out, floats.Dot(window, weights)/volumeSum)
	}
	return out
}

// MovingAverage dispatches to the primitive named by kind. Unknown kinds
// fall back to SMA.
func MovingAverage(kind string, values, volumes []float64, period int) []float64 {
	switch kind {
	case "EMA":
		return EMA(values, period)
	case "RMA":
		return RMA(values, period)
	case "WMA":
		return WMA(values, period)
	case "VWMA":
		return VWMA(values, volumes, period)
	default:
		return SMA(values, period)
	}
}

// trim drops the warm-up head talib leaves zeroed
func trim(full []float64, period int) []float64 {
	out := make([]float64, len(full)-period+1)
	copy(out, full[period-1:])
	return out
}
