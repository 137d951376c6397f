package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
	"github.com/mohamedkhairy/market-indicators/pkg/signal"
)

// MACD is the difference of a fast and a slow EMA with an EMA signal line
// and their histogram.
type MACD struct {
	schema Schema
}

// NewMACD creates the MACD definition
func NewMACD() *MACD {
	schema := Schema{
		numberField("fastPeriod", "Fast Length", groupInputs, 12, 1, 200, 1),
		numberField("slowPeriod", "Slow Length", groupInputs, 26, 1, 200, 1),
		numberField("signalPeriod", "Signal Smoothing", groupInputs, 9, 1, 50, 1),
		selectField("source", "Source", groupInputs, "close", models.PriceSources...),
		colorField("macdColor", "MACD Line", "#2962FF"),
		colorField("signalColor", "Signal Line", "#FF6D00"),
		colorField("histogramUpColor", "Histogram Above Zero", "#26A69A"),
		colorField("histogramDownColor", "Histogram Below Zero", "#EF5350"),
		boolField("showCrossSignals", "Show MACD/Signal Crosses", groupSignals, true),
		boolField("showZeroCrosses", "Show Zero Line Crosses", groupSignals, false),
	}
	schema = append(schema, divergenceFields(false)...)
	return &MACD{schema: schema}
}

func (m *MACD) Type() Type     { return TypeMACD }
func (m *MACD) Schema() Schema { return m.schema }

// Compute returns the "macd", "signal" and "histogram" lines. The macd line
// starts at max(fast, slow)-1 and the other two a further signalPeriod-1
// bars later.
func (m *MACD) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(m.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeMACD, err)
	}

	n := len(candles)
	times := models.Times(candles)
	src := models.Source(candles, cfg.String("source"))

	fast := series.Align(series.EMA(src, cfg.Int("fastPeriod")), n)
	slow := series.Align(series.EMA(src, cfg.Int("slowPeriod")), n)
	macd := series.Sub(fast, slow)
	sig := macd.Then(series.EMA(macd.Values, cfg.Int("signalPeriod")))
	hist := series.Sub(macd, sig)

	up, down := cfg.String("histogramUpColor"), cfg.String("histogramDownColor")

	out := newOutput()
	out.setLine("macd", times, macd, cfg.String("macdColor"))
	out.setLine("signal", times, sig, cfg.String("signalColor"))
	out.setColoredLine("histogram", times, hist, func(_ int, v float64) string {
		if v >= 0 {
			return up
		}
		return down
	})

	macdDense := macd.Dense()
	if cfg.Bool("showCrossSignals") {
		out.Crosses = signal.DetectCrosses(times, macdDense, sig.Dense())
	}
	if cfg.Bool("showZeroCrosses") {
		out.Crosses = mergeCrosses(out.Crosses, signal.DetectZeroCrosses(times, macdDense))
	}
	if cfg.Bool("showDivergences") {
		out.Divergences = signal.DetectDivergences(candles, macdDense, divergenceParams(cfg))
	}
	return out, nil
}

// mergeCrosses joins two most-recent-first cross lists, keeping that order
func mergeCrosses(a, b []signal.Cross) []signal.Cross {
	out := make([]signal.Cross, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Index >= b[j].Index {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
