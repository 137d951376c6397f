package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
	"github.com/mohamedkhairy/market-indicators/pkg/signal"
)

// RSI smoothing choices
const (
	SmoothingNone      = "None"
	SmoothingBollinger = "SMA + Bollinger Bands"
)

// RSI is Wilder's relative strength index with an optional moving average
// of the RSI itself.
type RSI struct {
	schema Schema
}

// NewRSI creates the RSI definition
func NewRSI() *RSI {
	schema := Schema{
		numberField("period", "RSI Length", groupInputs, 14, 1, 200, 1),
		selectField("source", "Source", groupInputs, "close", models.PriceSources...),
		selectField("smoothing", "MA Type", "Smoothing", "SMA",
			SmoothingNone, "SMA", "EMA", "RMA", "WMA", "VWMA", SmoothingBollinger),
		numberField("maLength", "MA Length", "Smoothing", 14, 1, 200, 1),
		numberField("bbMult", "BB StdDev", "Smoothing", 2, 0.001, 50, 0.1),
		numberField("upperBand", "Overbought Level", groupStyle, 70, 0, 100, 1),
		numberField("lowerBand", "Oversold Level", groupStyle, 30, 0, 100, 1),
		colorField("rsiColor", "RSI Line", "#7E57C2"),
		colorField("maColor", "MA Line", "#FFEB3B"),
		colorField("bbColor", "Bollinger Bands", "#4CAF50"),
	}
	schema = append(schema, divergenceFields(false)...)
	return &RSI{schema: schema}
}

func (r *RSI) Type() Type     { return TypeRSI }
func (r *RSI) Schema() Schema { return r.schema }

// Compute returns the "rsi" line and, depending on smoothing, "ma",
// "bbUpper" and "bbLower". Smoothing runs over the defined RSI values only,
// so its warm-up is added on top of the RSI offset.
func (r *RSI) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(r.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeRSI, err)
	}

	times := models.Times(candles)
	src := models.Source(candles, cfg.String("source"))
	rsi := WilderRSI(src, cfg.Int("period"))

	out := newOutput()
	out.setLine("rsi", times, rsi, cfg.String("rsiColor"))

	smoothing := cfg.String("smoothing")
	maLength := cfg.Int("maLength")
	switch smoothing {
	case SmoothingNone:
	case SmoothingBollinger:
		bands := series.Bollinger(rsi.Values, maLength, cfg.Float("bbMult"))
		bbColor := cfg.String("bbColor")
		out.setLine("ma", times, rsi.Then(bands.Middle), cfg.String("maColor"))
		out.setLine("bbUpper", times, rsi.Then(bands.Upper), bbColor)
		out.setLine("bbLower", times, rsi.Then(bands.Lower), bbColor)
	default:
		volumes := models.Volumes(candles)[rsi.Offset:]
		ma := series.MovingAverage(smoothing, rsi.Values, volumes, maLength)
		out.setLine("ma", times, rsi.Then(ma), cfg.String("maColor"))
	}

	if cfg.Bool("showDivergences") {
		// divergence needs an oscillator centered on zero
		centered := rsi.Dense()
		for i := range centered {
			centered[i] -= 50
		}
		out.Divergences = signal.DetectDivergences(candles, centered, divergenceParams(cfg))
	}
	return out, nil
}

// WilderRSI computes RSI from RMA-smoothed gains and losses. The first value
// belongs to source index period. A window without losses reads 100, or 50
// when it has no gains either.
func WilderRSI(values []float64, period int) series.Aligned {
	n := len(values)
	if n < 2 {
		return series.Align(nil, n)
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}
	changes := series.Align(gains, n)

	avgGain := series.RMA(gains, period)
	avgLoss := series.RMA(losses, period)

	rsi := make([]float64, len(avgGain))
	for i := range rsi {
		switch {
		case avgLoss[i] == 0 && avgGain[i] == 0:
			rsi[i] = 50
		case avgLoss[i] == 0:
			rsi[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			rsi[i] = 100 - 100/(1+rs)
		}
	}
	return changes.Then(rsi)
}
