package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
)

// Volume is a per-bar volume histogram colored by candle direction, with an
// optional moving average.
type Volume struct {
	schema Schema
}

// NewVolume creates the volume definition
func NewVolume() *Volume {
	return &Volume{
		schema: Schema{
			colorField("upColor", "Up Volume", "#26A69A"),
			colorField("downColor", "Down Volume", "#EF5350"),
			boolField("showMA", "Show Volume MA", groupInputs, false),
			numberField("maPeriod", "MA Length", groupInputs, 20, 1, 500, 1),
			colorField("maColor", "MA Line", "#2962FF"),
		},
	}
}

func (v *Volume) Type() Type     { return TypeVolume }
func (v *Volume) Schema() Schema { return v.schema }

// Compute returns the "volume" line and, with showMA, the "ma" line. A bar
// closing at or above its open is an up bar.
func (v *Volume) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(v.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeVolume, err)
	}

	times := models.Times(candles)
	volumes := models.Volumes(candles)
	up, down := cfg.String("upColor"), cfg.String("downColor")

	out := newOutput()
	out.setColoredLine("volume", times, series.Align(volumes, len(volumes)), func(i int, _ float64) string {
		if candles[i].Close >= candles[i].Open {
			return up
		}
		return down
	})

	if cfg.Bool("showMA") {
		ma := series.Align(series.SMA(volumes, cfg.Int("maPeriod")), len(volumes))
		out.setLine("ma", times, ma, cfg.String("maColor"))
	}
	return out, nil
}
