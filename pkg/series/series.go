// Package series holds the windowed numeric primitives the indicators are
// built from. Every primitive takes an ordered slice and a period and returns
// a slice shorter by period-1, or an empty slice when the input is shorter
// than the period. Aligned carries the resulting offset explicitly so values
// are never matched to the wrong source index.
package series

import "math"

// Undefined marks a point with no value in a dense, source-length slice.
var Undefined = math.NaN()

// IsDefined reports whether v holds a value
func IsDefined(v float64) bool {
	return !math.IsNaN(v)
}

// Aligned is a windowed result positioned against its source:
// Values[i] belongs to source index Offset+i.
type Aligned struct {
	Offset    int       `json:"offset"`
	SourceLen int       `json:"sourceLen"`
	Values    []float64 `json:"values"`
}

// Align positions values computed from a source of length sourceLen. The
// offset is sourceLen - len(values).
func Align(values []float64, sourceLen int) Aligned {
	if len(values) > sourceLen {
		values = values[len(values)-sourceLen:]
	}
	return Aligned{
		Offset:    sourceLen - len(values),
		SourceLen: sourceLen,
		Values:    values,
	}
}

// Then positions values that were computed from a.Values. The warm-up of
// the second stage is added to a's own offset.
func (a Aligned) Then(values []float64) Aligned {
	inner := Align(values, len(a.Values))
	return Aligned{
		Offset:    a.Offset + inner.Offset,
		SourceLen: a.SourceLen,
		Values:    inner.Values,
	}
}

// Len returns the number of defined positions
func (a Aligned) Len() int {
	return len(a.Values)
}

// At returns the value at source index i
func (a Aligned) At(i int) (float64, bool) {
	j := i - a.Offset
	if j < 0 || j >= len(a.Values) {
		return 0, false
	}
	v := a.Values[j]
	return v, IsDefined(v)
}

// Value returns the value at source index i, Undefined outside the result
func (a Aligned) Value(i int) float64 {
	if v, ok := a.At(i); ok {
		return v
	}
	return Undefined
}

// Dense expands the result to source length, padding the warm-up with Undefined
func (a Aligned) Dense() []float64 {
	out := make([]float64, a.SourceLen)
	for i := range out {
		out[i] = Undefined
	}
	copy(out[a.Offset:], a.Values)
	return out
}

// Sub subtracts b from a over the positions where both are defined
func Sub(a, b Aligned) Aligned {
	n := a.SourceLen
	if b.SourceLen < n {
		n = b.SourceLen
	}
	offset := a.Offset
	if b.Offset > offset {
		offset = b.Offset
	}
	if offset >= n {
		return Aligned{Offset: n, SourceLen: n, Values: []float64{}}
	}

	out := make([]float64, 0, n-offset)
	for i := offset; i < n; i++ {
		av, _ := a.At(i)
		bv, _ := b.At(i)
		out = append(out, av-bv)
	}
	return Aligned{Offset: offset, SourceLen: n, Values: out}
}

// Fill returns a dense copy with undefined points replaced by def
func Fill(dense []float64, def float64) []float64 {
	out := make([]float64, len(dense))
	for i, v := range dense {
		if IsDefined(v) {
			out[i] = v
		} else {
			out[i] = def
		}
	}
	return out
}

// Scale multiplies every value by k
func Scale(values []float64, k float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * k
	}
	return out
}

func insufficient(n, period int) bool {
	return period <= 0 || n < period
}
