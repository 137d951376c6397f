// Package layout persists named sets of indicator instances so a chart can
// be saved and restored.
package layout

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/internal/overlay"
)

// Layout is a named snapshot of a registry
type Layout struct {
	Name       string         `json:"name" yaml:"name"`
	Indicators []overlay.Spec `json:"indicators" yaml:"indicators"`
	UpdatedAt  time.Time      `json:"updatedAt" yaml:"-"`
}

// Store persists layouts by name
type Store interface {
	Save(ctx context.Context, l Layout) error
	// Load returns models.ErrLayoutNotFound for unknown names
	Load(ctx context.Context, name string) (Layout, error)
	// List returns layout names, sorted
	List(ctx context.Context) ([]string, error)
	// Delete is a no-op for unknown names
	Delete(ctx context.Context, name string) error
}

// Validate checks the name and that every indicator names a type
func (l Layout) Validate() error {
	if err := ValidateName(l.Name); err != nil {
		return err
	}
	for i, spec := range l.Indicators {
		if spec.Type == "" {
			return fmt.Errorf("%w: indicator %d has no type", models.ErrInvalidLayout, i)
		}
	}
	return nil
}

// reservedName is taken by the name index of the redis store
const reservedName = "names"

// ValidateName rejects empty names, the reserved name and names that would
// break key layout
func ValidateName(name string) error {
	if name == reservedName {
		return fmt.Errorf("%w: name %q is reserved", models.ErrInvalidLayout, name)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", models.ErrInvalidLayout)
	}
	if strings.ContainsAny(name, " \t\n:") {
		return fmt.Errorf("%w: name %q contains whitespace or ':'", models.ErrInvalidLayout, name)
	}
	return nil
}

// LoadPreset reads a YAML preset:
//
//	name: default
//	indicators:
//	  - type: ema
//	    visible: true
//	    config: {period: 50}
func LoadPreset(path string) (Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(raw)
}

// ParsePreset decodes preset YAML. A missing name becomes "preset".
func ParsePreset(raw []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", models.ErrInvalidLayout, err)
	}
	if l.Name == "" {
		l.Name = "preset"
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func cloneLayout(l Layout) Layout {
	out := l
	out.Indicators = make([]overlay.Spec, len(l.Indicators))
	for i, spec := range l.Indicators {
		out.Indicators[i] = spec
		out.Indicators[i].Config = spec.Config.Clone()
	}
	return out
}

// Capture snapshots a registry under name
func Capture(name string, r *overlay.Registry) Layout {
	return Layout{Name: name, Indicators: r.Snapshot()}
}

// Apply replaces the registry's instances with the layout's
func Apply(l Layout, r *overlay.Registry) error {
	if err := r.Restore(l.Indicators); err != nil {
		return fmt.Errorf("apply layout %s: %w", l.Name, err)
	}
	return nil
}
