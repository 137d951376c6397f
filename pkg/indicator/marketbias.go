package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
)

// BiasState classifies the market-bias oscillator against its signal line
type BiasState string

const (
	BullStrong BiasState = "bullStrong"
	BullWeak   BiasState = "bullWeak"
	BearStrong BiasState = "bearStrong"
	BearWeak   BiasState = "bearWeak"
	Neutral    BiasState = "neutral"
)

// BiasPoint is the state of one bar with the values it was derived from.
// Signal is omitted while the signal line is still warming up.
type BiasPoint struct {
	Time       string    `json:"time"`
	State      BiasState `json:"state"`
	Color      string    `json:"color"`
	Oscillator float64   `json:"oscillator"`
	Signal     *float64  `json:"signal,omitempty"`
}

// ClassifyBias maps an oscillator value and its signal to a state. Bull
// above or at the signal is strong, below it weak; bear mirrors that. A
// missing signal or a zero oscillator is neutral.
func ClassifyBias(osc, sig float64) BiasState {
	if math.IsNaN(osc) || math.IsNaN(sig) {
		return Neutral
	}
	switch {
	case osc > 0 && osc >= sig:
		return BullStrong
	case osc > 0:
		return BullWeak
	case osc < 0 && osc <= sig:
		return BearStrong
	case osc < 0:
		return BearWeak
	default:
		return Neutral
	}
}

// MarketBias smooths candles twice through a Heikin-Ashi transform and
// reads the bias from the smoothed body.
type MarketBias struct {
	schema Schema
}

// NewMarketBias creates the market-bias definition
func NewMarketBias() *MarketBias {
	return &MarketBias{
		schema: Schema{
			numberField("period", "Period", groupInputs, 60, 1, 500, 1),
			numberField("smoothing", "Smoothing", groupInputs, 10, 1, 200, 1),
			numberField("oscillatorPeriod", "Oscillator Period", groupInputs, 7, 1, 200, 1),
			colorField("bullStrongColor", "Bull Strong", "#00E676"),
			colorField("bullWeakColor", "Bull Weak", "#A5D6A7"),
			colorField("bearStrongColor", "Bear Strong", "#FF5252"),
			colorField("bearWeakColor", "Bear Weak", "#EF9A9A"),
			colorField("neutralColor", "Neutral", "#9E9E9E"),
		},
	}
}

func (m *MarketBias) Type() Type     { return TypeMarketBias }
func (m *MarketBias) Schema() Schema { return m.schema }

// Compute returns the smoothed Heikin-Ashi "open", "high", "low", "close"
// and "avg" lines, the "oscillator" and "signal" lines and one state per
// bar with a defined oscillator.
func (m *MarketBias) Compute(candles []models.Candle, cfg Config) (*Output, error) {
	cfg, err := prepare(m.schema, candles, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TypeMarketBias, err)
	}

	n := len(candles)
	times := models.Times(candles)
	period := cfg.Int("period")
	smoothing := cfg.Int("smoothing")

	// stage 1: synthetic candles
	o := series.Align(series.EMA(models.Opens(candles), period), n)
	h := series.Align(series.EMA(models.Highs(candles), period), n)
	l := series.Align(series.EMA(models.Lows(candles), period), n)
	c := series.Align(series.EMA(models.Closes(candles), period), n)

	haOpen, haHigh, haLow, haClose := heikinAshi(o.Values, h.Values, l.Values, c.Values)

	// stage 2: smooth the Heikin-Ashi candles again
	so := o.Then(series.EMA(haOpen, smoothing))
	sh := o.Then(series.EMA(haHigh, smoothing))
	sl := o.Then(series.EMA(haLow, smoothing))
	sc := o.Then(series.EMA(haClose, smoothing))

	avg := series.Aligned{Offset: sh.Offset, SourceLen: n, Values: make([]float64, sh.Len())}
	for i := range avg.Values {
		avg.Values[i] = (sh.Values[i] + sl.Values[i]) / 2
	}

	osc := series.Sub(sc, so)
	osc.Values = series.Scale(osc.Values, 100)
	sig := osc.Then(series.EMA(osc.Values, cfg.Int("oscillatorPeriod")))

	colors := map[BiasState]string{
		BullStrong: cfg.String("bullStrongColor"),
		BullWeak:   cfg.String("bullWeakColor"),
		BearStrong: cfg.String("bearStrongColor"),
		BearWeak:   cfg.String("bearWeakColor"),
		Neutral:    cfg.String("neutralColor"),
	}

	out := newOutput()
	out.setLine("open", times, so, "")
	out.setLine("high", times, sh, "")
	out.setLine("low", times, sl, "")
	out.setLine("close", times, sc, "")
	out.setLine("avg", times, avg, "")
	out.setColoredLine("oscillator", times, osc, func(i int, v float64) string {
		return colors[ClassifyBias(v, sig.Value(i))]
	})
	out.setLine("signal", times, sig, "")

	out.States = make([]BiasPoint, 0, osc.Len())
	for j, v := range osc.Values {
		i := osc.Offset + j
		point := BiasPoint{Time: times[i], Oscillator: v}
		if sv, ok := sig.At(i); ok {
			point.Signal = &sv
		}
		point.State = ClassifyBias(v, sig.Value(i))
		point.Color = colors[point.State]
		out.States = append(out.States, point)
	}
	return out, nil
}

// heikinAshi transforms synthetic candles. The first open is the mean of its
// own open and close; every later open averages the previous synthetic
// open and the previous Heikin-Ashi close.
func heikinAshi(o, h, l, c []float64) (haOpen, haHigh, haLow, haClose []float64) {
	n := len(c)
	haOpen = make([]float64, n)
	haHigh = make([]float64, n)
	haLow = make([]float64, n)
	haClose = make([]float64, n)

	for i := 0; i < n; i++ {
		haClose[i] = (o[i] + h[i] + l[i] + c[i]) / 4
		if i == 0 {
			haOpen[i] = (o[i] + c[i]) / 2
		} else {
			haOpen[i] = (o[i-1] + haClose[i-1]) / 2
		}
		haHigh[i] = math.Max(h[i], math.Max(haOpen[i], haClose[i]))
		haLow[i] = math.Min(l[i], math.Min(haOpen[i], haClose[i]))
	}
	return haOpen, haHigh, haLow, haClose
}
