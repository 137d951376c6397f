package indicator

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// FieldType is the value domain of a config field
type FieldType string

const (
	FieldNumber  FieldType = "number"
	FieldColor   FieldType = "color"
	FieldBoolean FieldType = "boolean"
	FieldSelect  FieldType = "select"
)

// Field describes one configurable value. The JSON form is what config
// editors render from, so the key names are stable.
type Field struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Group   string    `json:"group,omitempty"`
	Type    FieldType `json:"type"`
	Default any       `json:"default"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Step    *float64  `json:"step,omitempty"`
	Options []string  `json:"options,omitempty"`
}

// Schema is the ordered field list of an indicator type
type Schema []Field

// Config maps field keys to values. A Config handed to Compute is never
// mutated; Merge and Normalize return new maps.
type Config map[string]any

// Field looks up a field by key
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Keys returns the field keys in schema order
func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, f := range s {
		keys[i] = f.Key
	}
	return keys
}

// Defaults returns a config holding every field's default value
func (s Schema) Defaults() Config {
	cfg := make(Config, len(s))
	for _, f := range s {
		cfg[f.Key] = f.Default
	}
	return cfg
}

// Normalize type-checks cfg against the schema, clamps numbers into their
// bounds and fills missing keys with defaults. Unknown keys and unknown
// select options are rejected.
func (s Schema) Normalize(cfg Config) (Config, error) {
	for key := range cfg {
		if _, ok := s.Field(key); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
	}

	out := make(Config, len(s))
	for _, f := range s {
		raw, ok := cfg[f.Key]
		if !ok || raw == nil {
			out[f.Key] = f.Default
			continue
		}

		v, err := f.normalize(raw)
		if err != nil {
			return nil, err
		}
		out[f.Key] = v
	}
	return out, nil
}

func (f Field) normalize(raw any) (any, error) {
	switch f.Type {
	case FieldNumber:
		v, ok := toFloat(raw)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidConfig, f.Key, raw)
		}
		clamped := f.clamp(v)
		if clamped != v {
			logger.Debug("Clamped config value",
				logger.String("field", f.Key),
				logger.Float64("requested", v),
				logger.Float64("applied", clamped),
			)
		}
		return clamped, nil

	case FieldBoolean:
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a boolean, got %v", ErrInvalidConfig, f.Key, raw)
		}
		return v, nil

	case FieldColor:
		v, ok := raw.(string)
		if !ok || v == "" {
			return nil, fmt.Errorf("%w: %s must be a color string, got %v", ErrInvalidConfig, f.Key, raw)
		}
		return v, nil

	case FieldSelect:
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be one of %v, got %v", ErrInvalidConfig, f.Key, f.Options, raw)
		}
		for _, opt := range f.Options {
			if opt == v {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidConfig, f.Key, f.Options, v)
	}
	return nil, fmt.Errorf("%w: field %s has unknown type %q", ErrInvalidConfig, f.Key, f.Type)
}

// clamp bounds v to [Min, Max]. Fields with a whole-number step only hold
// whole numbers.
func (f Field) clamp(v float64) float64 {
	if f.Step != nil && *f.Step >= 1 && *f.Step == math.Trunc(*f.Step) {
		v = math.Round(v)
	}
	if f.Min != nil && v < *f.Min {
		v = *f.Min
	}
	if f.Max != nil && v > *f.Max {
		v = *f.Max
	}
	return v
}

// Merge overlays partial on a copy of c, one key at a time
func (c Config) Merge(partial Config) Config {
	out := c.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Float returns a numeric field, 0 when absent
func (c Config) Float(key string) float64 {
	v, _ := toFloat(c[key])
	return v
}

// Int returns a numeric field rounded to the nearest integer
func (c Config) Int(key string) int {
	return int(math.Round(c.Float(key)))
}

// Bool returns a boolean field, false when absent
func (c Config) Bool(key string) bool {
	v, _ := c[key].(bool)
	return v
}

// String returns a string field, "" when absent
func (c Config) String(key string) string {
	v, _ := c[key].(string)
	return v
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// field builders used by the definitions

func numberField(key, label, group string, def, min, max, step float64) Field {
	return Field{
		Key:     key,
		Label:   label,
		Group:   group,
		Type:    FieldNumber,
		Default: def,
		Min:     &min,
		Max:     &max,
		Step:    &step,
	}
}

func colorField(key, label, def string) Field {
	return Field{Key: key, Label: label, Group: groupStyle, Type: FieldColor, Default: def}
}

func boolField(key, label, group string, def bool) Field {
	return Field{Key: key, Label: label, Group: group, Type: FieldBoolean, Default: def}
}

func selectField(key, label, group, def string, options ...string) Field {
	return Field{Key: key, Label: label, Group: group, Type: FieldSelect, Default: def, Options: options}
}

const (
	groupInputs     = "Inputs"
	groupStyle      = "Style"
	groupSignals    = "Signals"
	groupDivergence = "Divergence"
)
