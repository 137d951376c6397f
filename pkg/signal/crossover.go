// Package signal detects discrete events in computed series: crossovers of
// two lines, zero-line crosses and pivot based divergences between price and
// an oscillator. Inputs are dense, source-length slices where NaN marks an
// undefined point (see series.Undefined).
package signal

import (
	"math"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

// Direction is the bias of a detected event
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Cross is a detected crossing of series A over series B. Bullish is the
// golden cross (A moves above B), bearish the dead cross.
type Cross struct {
	Index              int       `json:"index"`
	Time               string    `json:"time"`
	Direction          Direction `json:"direction"`
	Value              float64   `json:"value"`
	DaysSinceLastCross *int      `json:"daysSinceLastCross,omitempty"`
}

// DetectCrosses finds every bar i where a-b changes sign against bar i-1.
// Bars with an undefined operand on either side are skipped. Detection runs
// chronologically; the result is most recent first.
func DetectCrosses(times []string, a, b []float64) []Cross {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(times) < n {
		n = len(times)
	}

	var crosses []Cross
	var lastTime string
	for i := 1; i < n; i++ {
		if math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) || math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}

		prev := a[i-1] - b[i-1]
		curr := a[i] - b[i]

		var dir Direction
		switch {
		case prev <= 0 && curr > 0:
			dir = Bullish
		case prev >= 0 && curr < 0:
			dir = Bearish
		default:
			continue
		}

		cross := Cross{
			Index:     i,
			Time:      times[i],
			Direction: dir,
			Value:     a[i],
		}
		if len(crosses) > 0 {
			cross.DaysSinceLastCross = daysBetween(lastTime, times[i])
		}
		lastTime = times[i]
		crosses = append(crosses, cross)
	}

	reverseCrosses(crosses)
	return crosses
}

// DetectZeroCrosses finds crossings of a through the zero line
func DetectZeroCrosses(times []string, a []float64) []Cross {
	return DetectCrosses(times, a, make([]float64, len(a)))
}

// daysBetween returns the whole days from one time key to another, or nil
// when either key does not parse
func daysBetween(from, to string) *int {
	start, err := models.ParseTime(from)
	if err != nil {
		return nil
	}
	end, err := models.ParseTime(to)
	if err != nil {
		return nil
	}
	days := int(end.Sub(start).Hours() / 24)
	return &days
}

func reverseCrosses(crosses []Cross) {
	for i, j := 0, len(crosses)-1; i < j; i, j = i+1, j-1 {
		crosses[i], crosses[j] = crosses[j], crosses[i]
	}
}
