package series

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bands is a Bollinger envelope; all three slices share one alignment.
type Bands struct {
	Middle []float64 `json:"middle"`
	Upper  []float64 `json:"upper"`
	Lower  []float64 `json:"lower"`
}

// StdDev is the population standard deviation of each window
func StdDev(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}

	out := make([]float64, 0, len(values)-period+1)
	for end := period; end <= len(values); end++ {
		_, sd := windowStats(values[end-period:end])
		out = append(out, sd)
	}
	return out
}

// Bollinger returns mean ± stdDev*multiplier per window
func Bollinger(values []float64, period int, multiplier float64) Bands {
	if insufficient(len(values), period) {
		return Bands{Middle: []float64{}, Upper: []float64{}, Lower: []float64{}}
	}

	n := len(values) - period + 1
	bands := Bands{
		Middle: make([]float64, 0, n),
		Upper:  make([]float64, 0, n),
		Lower:  make([]float64, 0, n),
	}
	for end := period; end <= len(values); end++ {
		mean, sd := windowStats(values[end-period : end])
		bands.Middle = append(bands.Middle, mean)
		bands.Upper = append(bands.Upper, mean+sd*multiplier)
		bands.Lower = append(bands.Lower, mean-sd*multiplier)
	}
	return bands
}

// ZScore is (value - mean) / stdDev of each trailing window, 0 when the
// window has no spread.
func ZScore(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}

	out := make([]float64, 0, len(values)-period+1)
	for end := period; end <= len(values); end++ {
		mean, sd := windowStats(values[end-period : end])
		if sd == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (values[end-1]-mean)/sd)
	}
	return out
}

// StochK places each value inside the min/max range of its window on a
// 0-100 scale. A flat window is Undefined; callers pick the neutral value.
func StochK(values []float64, period int) []float64 {
	if insufficient(len(values), period) {
		return []float64{}
	}

	out := make([]float64, 0, len(values)-period+1)
	for end := period; end <= len(values); end++ {
		window := values[end-period : end]
		lo, hi := floats.Min(window), floats.Max(window)
		if hi-lo == 0 {
			out = append(out, Undefined)
			continue
		}
		out = append(out, (window[period-1]-lo)/(hi-lo)*100)
	}
	return out
}

// windowStats returns mean and population standard deviation
func windowStats(window []float64) (mean, sd float64) {
	mean, variance := stat.PopMeanVariance(window, nil)
	if variance <= 0 || math.IsNaN(variance) {
		return mean, 0
	}
	return mean, math.Sqrt(variance)
}
