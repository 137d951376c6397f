package indicator

import (
	"fmt"

	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
)

// ATR is the average true range over a window of bars
type ATR struct {
	schema Schema
}

// NewATR creates the ATR definition
func NewATR() *ATR {
	return &ATR{
		schema: Schema{
			numberField("period", "Length", groupInputs, 14, 1, 200, 1),
			colorField("color", "Line Color", "#B71C1C"),
		},
	}
}

func (a *ATR) Type() Type     { return TypeATR }
func (a *ATR) Schema() Schema { return a.schema }

// Compute returns the "atr" line. True range needs a previous close, so the
// first value belongs to source index period.
func (a *ATR) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(a.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeATR, err)
	}

	n := len(candles)
	period := cfg.Int("period")

	ts := toTimeSeries(candles)
	atr := techan.NewAverageTrueRangeIndicator(ts, period)

	out := newOutput()
	out.setLine("atr", models.Times(candles), series.Align(calculateAll(atr, period, n), n), cfg.String("color"))
	return out, nil
}
