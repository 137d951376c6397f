package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
	"github.com/mohamedkhairy/market-indicators/pkg/signal"
)

// RateOfChange is the percentage change of a price source over a number of
// bars
type RateOfChange struct {
	schema Schema
}

// NewRateOfChange creates the rate-of-change definition
func NewRateOfChange() *RateOfChange {
	return &RateOfChange{
		schema: Schema{
			numberField("period", "Length", groupInputs, 10, 1, 500, 1),
			selectField("source", "Source", groupInputs, "close", models.PriceSources...),
			colorField("color", "Line Color", "#2962FF"),
			boolField("showZeroCrosses", "Show Zero Line Crosses", groupSignals, false),
		},
	}
}

func (r *RateOfChange) Type() Type     { return TypeROC }
func (r *RateOfChange) Schema() Schema { return r.schema }

// Compute returns the "roc" line starting at source index period. A zero
// base price leaves that point undefined.
func (r *RateOfChange) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(r.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeROC, err)
	}

	times := models.Times(candles)
	roc := series.Align(PercentChange(models.Source(candles, cfg.String("source")), cfg.Int("period")), len(candles))

	out := newOutput()
	out.setLine("roc", times, roc, cfg.String("color"))
	if cfg.Bool("showZeroCrosses") {
		out.Crosses = signal.DetectZeroCrosses(times, roc.Dense())
	}
	return out, nil
}

// PercentChange returns (v[i] - v[i-period]) / v[i-period] * 100 for every i
// from period on
func PercentChange(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return []float64{}
	}

	out := make([]float64, 0, len(values)-period)
	for i := period; i < len(values); i++ {
		base := values[i-period]
		if base == 0 {
			out = append(out, series.Undefined)
			continue
		}
		out = append(out, (values[i]-base)/base*100)
	}
	return out
}
