package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
	"github.com/mohamedkhairy/market-indicators/pkg/signal"
)

// MovingAverage draws a moving average over a price source. The sma and
// ema types share it and differ only in their default averaging kind.
type MovingAverage struct {
	kind   Type
	schema Schema
}

// NewMovingAverage creates the definition for TypeSMA or TypeEMA
func NewMovingAverage(kind Type) *MovingAverage {
	def := "SMA"
	if kind == TypeEMA {
		def = "EMA"
	}

	return &MovingAverage{
		kind: kind,
		schema: Schema{
			numberField("period", "Length", groupInputs, 20, 1, 500, 1),
			selectField("type", "Method", groupInputs, def, "SMA", "EMA", "RMA", "WMA", "VWMA"),
			selectField("source", "Source", groupInputs, "close", models.PriceSources...),
			colorField("color", "Line Color", "#2962FF"),
			numberField("lineWidth", "Line Width", groupStyle, 2, 1, 4, 1),
			boolField("showCrossSignals", "Show Price Crosses", groupSignals, false),
		},
	}
}

func (m *MovingAverage) Type() Type     { return m.kind }
func (m *MovingAverage) Schema() Schema { return m.schema }

// Compute returns the "value" line. With showCrossSignals it also reports
// crosses of the close over the average.
func (m *MovingAverage) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(m.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.kind, err)
	}

	times := models.Times(candles)
	src := models.Source(candles, cfg.String("source"))
	ma := series.Align(
		series.MovingAverage(cfg.String("type"), src, models.Volumes(candles), cfg.Int("period")),
		len(candles),
	)

	out := newOutput()
	out.setLine("value", times, ma, cfg.String("color"))

	if cfg.Bool("showCrossSignals") {
		out.Crosses = signal.DetectCrosses(times, models.Closes(candles), ma.Dense())
	}
	return out, nil
}
