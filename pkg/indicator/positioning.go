package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
)

// Neutral fills for the positioning lines
const (
	neutralIndex  = 50
	neutralZScore = 0
)

// Positioning normalizes a net-position series, such as the commitments of
// traders net long figure, into a 0-100 index and a Z-score. The series is
// read from the candle source field, close by default.
type Positioning struct {
	schema Schema
}

// NewPositioning creates the positioning definition
func NewPositioning() *Positioning {
	return &Positioning{
		schema: Schema{
			numberField("indexPeriod", "Index Lookback", groupInputs, 52, 2, 520, 1),
			numberField("zScorePeriod", "Z-Score Lookback", groupInputs, 52, 2, 520, 1),
			selectField("source", "Net Position Field", groupInputs, "close", models.PriceSources...),
			numberField("upperThreshold", "Extreme Long", groupStyle, 80, 0, 100, 1),
			numberField("lowerThreshold", "Extreme Short", groupStyle, 20, 0, 100, 1),
			colorField("indexColor", "Index Line", "#2962FF"),
			colorField("zScoreColor", "Z-Score Line", "#FF6D00"),
		},
	}
}

func (p *Positioning) Type() Type     { return TypePositioning }
func (p *Positioning) Schema() Schema { return p.schema }

// Compute returns the "index" and "zscore" lines with one point per candle:
// undefined index points read 50 and undefined Z-scores read 0.
func (p *Positioning) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(p.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypePositioning, err)
	}

	n := len(candles)
	times := models.Times(candles)
	net := models.Source(candles, cfg.String("source"))

	index := series.Align(series.StochK(net, cfg.Int("indexPeriod")), n).Dense()
	zscore := series.Align(series.ZScore(net, cfg.Int("zScorePeriod")), n).Dense()

	out := newOutput()
	out.setLine("index", times, series.Align(series.Fill(index, neutralIndex), n), cfg.String("indexColor"))
	out.setLine("zscore", times, series.Align(series.Fill(zscore, neutralZScore), n), cfg.String("zScoreColor"))
	return out, nil
}
