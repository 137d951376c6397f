package indicator

import (
	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/series"
	"github.com/mohamedkhairy/market-indicators/pkg/signal"
)

// Point is one drawable value. Only defined values become points, so a
// line's first point sits at its warm-up offset.
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// Output is the computed data of one indicator over one candle set. Events
// are regenerated on every computation and never patched.
type Output struct {
	Lines       map[string][]Point  `json:"lines"`
	Offsets     map[string]int      `json:"offsets"`
	Crosses     []signal.Cross      `json:"crosses,omitempty"`
	Divergences []signal.Divergence `json:"divergences,omitempty"`
	States      []BiasPoint         `json:"states,omitempty"`
}

func newOutput() *Output {
	return &Output{
		Lines:   make(map[string][]Point),
		Offsets: make(map[string]int),
	}
}

// Line returns the points of a named line
func (o *Output) Line(name string) []Point {
	if o == nil {
		return nil
	}
	return o.Lines[name]
}

// Values returns the values of a named line
func (o *Output) Values(name string) []float64 {
	points := o.Line(name)
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// setLine stores an aligned series as points, all in one color
func (o *Output) setLine(name string, times []string, a series.Aligned, color string) {
	points := make([]Point, 0, a.Len())
	for j, v := range a.Values {
		if !series.IsDefined(v) {
			continue
		}
		points = append(points, Point{Time: times[a.Offset+j], Value: v, Color: color})
	}
	o.Lines[name] = points
	o.Offsets[name] = a.Offset
}

// setColoredLine stores an aligned series with a per-point color
func (o *Output) setColoredLine(name string, times []string, a series.Aligned, colorAt func(i int, v float64) string) {
	points := make([]Point, 0, a.Len())
	for j, v := range a.Values {
		if !series.IsDefined(v) {
			continue
		}
		i := a.Offset + j
		points = append(points, Point{Time: times[i], Value: v, Color: colorAt(i, v)})
	}
	o.Lines[name] = points
	o.Offsets[name] = a.Offset
}

// prepare checks candle order and normalizes cfg against schema
func prepare(schema Schema, candles []models.Candle, cfg Config) (Config, error) {
	if err := models.CheckOrdered(candles); err != nil {
		return nil, err
	}
	return schema.Normalize(cfg)
}

func divergenceFields(enabled bool) []Field {
	return []Field{
		boolField("showDivergences", "Show Divergences", groupDivergence, enabled),
		numberField("lookbackLeft", "Pivot Lookback Left", groupDivergence, 5, 1, 50, 1),
		numberField("lookbackRight", "Pivot Lookback Right", groupDivergence, 5, 1, 50, 1),
		numberField("rangeMin", "Min Bars Between Pivots", groupDivergence, 5, 1, 500, 1),
		numberField("rangeMax", "Max Bars Between Pivots", groupDivergence, 60, 1, 500, 1),
		boolField("dontTouchZero", "Oscillator Must Not Cross Zero", groupDivergence, true),
	}
}

func divergenceParams(cfg Config) signal.DivergenceParams {
	return signal.DivergenceParams{
		LookbackLeft:  cfg.Int("lookbackLeft"),
		LookbackRight: cfg.Int("lookbackRight"),
		RangeMin:      cfg.Int("rangeMin"),
		RangeMax:      cfg.Int("rangeMax"),
		DontTouchZero: cfg.Bool("dontTouchZero"),
	}
}
