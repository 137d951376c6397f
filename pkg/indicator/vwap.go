package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
)

// VWAP modes
const (
	VWAPRolling    = "Rolling"
	VWAPCumulative = "Cumulative"
)

// VWAP is the volume weighted average of the typical price (HLC/3), either
// over a rolling window of bars or anchored at the first candle
type VWAP struct {
	schema Schema
}

// NewVWAP creates the VWAP definition
func NewVWAP() *VWAP {
	return &VWAP{
		schema: Schema{
			selectField("mode", "Mode", groupInputs, VWAPRolling, VWAPRolling, VWAPCumulative),
			numberField("period", "Rolling Length", groupInputs, 20, 1, 500, 1),
			colorField("color", "Line Color", "#FF9800"),
		},
	}
}

func (v *VWAP) Type() Type     { return TypeVWAP }
func (v *VWAP) Schema() Schema { return v.schema }

// Compute returns the "vwap" line. Windows without volume read the last
// typical price.
func (v *VWAP) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(v.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeVWAP, err)
	}

	n := len(candles)
	typical := models.Source(candles, "hlc3")
	volumes := models.Volumes(candles)

	var vwap series.Aligned
	if cfg.String("mode") == VWAPCumulative {
		vwap = series.Align(cumulativeVWAP(typical, volumes), n)
	} else {
		vwap = series.Align(series.VWMA(typical, volumes, cfg.Int("period")), n)
	}

	out := newOutput()
	out.setLine("vwap", models.Times(candles), vwap, cfg.String("color"))
	return out, nil
}

func cumulativeVWAP(prices, volumes []float64) []float64 {
	out := make([]float64, len(prices))
	var totalPriceVolume, totalVolume float64
	for i, p := range prices {
		totalPriceVolume += p * volumes[i]
		totalVolume += volumes[i]
		if totalVolume == 0 {
			out[i] = p
			continue
		}
		out[i] = totalPriceVolume / totalVolume
	}
	return out
}
