// Package overlay keeps the indicator instances of one chart. Every
// instance is recomputed in full whenever its config or the shared candle
// set changes; nothing is patched incrementally.
package overlay

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/pkg/indicator"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
	"github.com/mohamedkhairy/market-indicators/pkg/signal"
)

// Instance is one configured indicator on the chart. Values handed out by
// the registry are copies; Data is shared and must be treated as read-only.
type Instance struct {
	ID      string            `json:"id"`
	Type    indicator.Type    `json:"type"`
	Visible bool              `json:"visible"`
	Config  indicator.Config  `json:"config"`
	Data    *indicator.Output `json:"data"`
}

// Spec is the persistable part of an instance
type Spec struct {
	ID      string           `json:"id,omitempty" yaml:"id,omitempty"`
	Type    indicator.Type   `json:"type" yaml:"type"`
	Visible bool             `json:"visible" yaml:"visible"`
	Config  indicator.Config `json:"config,omitempty" yaml:"config,omitempty"`
}

// Option configures a Registry
type Option func(*Registry)

// WithIDGenerator replaces the default UUID generator
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Registry) {
		r.ids = gen
	}
}

// WithCandles sets the initial candle set. Unordered candles are dropped
// with a warning; use SetCandles to get the error.
func WithCandles(candles []models.Candle) Option {
	return func(r *Registry) {
		if err := models.CheckOrdered(candles); err != nil {
			logger.Warn("Ignoring initial candles", logger.ErrorField(err))
			return
		}
		r.candles = append([]models.Candle(nil), candles...)
	}
}

// Registry is the keyed collection of indicator instances. Each operation
// holds the one mutex for its full duration, computation included.
type Registry struct {
	mu        sync.RWMutex
	catalog   *indicator.Catalog
	ids       IDGenerator
	candles   []models.Candle
	instances map[string]*Instance
	order     []string
}

// NewRegistry creates an empty registry over catalog
func NewRegistry(catalog *indicator.Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog:   catalog,
		ids:       UUIDGenerator{},
		instances: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add creates a visible instance of t with the default config and computes
// it against the current candles
func (r *Registry) Add(t indicator.Type) (string, error) {
	return r.AddSpec(Spec{Type: t, Visible: true})
}

// AddSpec creates an instance from spec in one step: the spec config is
// merged over the type defaults and computed before anything is inserted.
// The spec id is ignored. Nothing changes when the config is invalid.
func (r *Registry) AddSpec(spec Spec) (string, error) {
	cfg, err := r.resolveConfig(spec)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.catalog.Compute(spec.Type, r.candles, cfg)
	if err != nil {
		return "", err
	}

	id := r.freshID()
	r.insert(&Instance{ID: id, Type: spec.Type, Visible: spec.Visible, Config: cfg, Data: data})
	r.recordOperation("add")

	logger.Debug("Added indicator instance",
		logger.String("id", id),
		logger.String("type", string(spec.Type)),
	)
	return id, nil
}

// Remove deletes an instance. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[id]; !ok {
		return
	}
	delete(r.instances, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.recordOperation("remove")
}

// UpdateConfig merges partial into the instance config and recomputes its
// data from scratch. An invalid merged config leaves the instance untouched.
func (r *Registry) UpdateConfig(id string, partial indicator.Config) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return Instance{}, fmt.Errorf("%w: %s", models.ErrInstanceNotFound, id)
	}

	def, err := r.catalog.Get(inst.Type)
	if err != nil {
		return Instance{}, err
	}
	cfg, err := def.Schema().Normalize(inst.Config.Merge(partial))
	if err != nil {
		return Instance{}, fmt.Errorf("update %s: %w", id, err)
	}

	data, err := r.catalog.Compute(inst.Type, r.candles, cfg)
	if err != nil {
		return Instance{}, fmt.Errorf("update %s: %w", id, err)
	}

	inst.Config = cfg
	inst.Data = data
	r.recordOperation("update")
	return inst.clone(), nil
}

// ToggleVisible flips the visibility flag without recomputing. ok is false
// for an unknown id.
func (r *Registry) ToggleVisible(id string) (visible, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return false, false
	}
	inst.Visible = !inst.Visible
	r.recordOperation("toggle")
	return inst.Visible, true
}

// Get returns a copy of an instance
func (r *Registry) Get(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[id]
	if !ok {
		return Instance{}, false
	}
	return inst.clone(), true
}

// List returns every instance in insertion order
func (r *Registry) List() []Instance {
	return r.list(false)
}

// ListVisible returns the visible instances in insertion order
func (r *Registry) ListVisible() []Instance {
	return r.list(true)
}

// Len returns the number of instances
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SetCandles replaces the candle set and recomputes every instance. The
// swap is all or nothing.
func (r *Registry) SetCandles(candles []models.Candle) error {
	if err := models.CheckOrdered(candles); err != nil {
		return err
	}
	candles = append([]models.Candle(nil), candles...)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make(map[string]*indicator.Output, len(r.instances))
	for _, id := range r.order {
		inst := r.instances[id]
		out, err := r.catalog.Compute(inst.Type, candles, inst.Config)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", id, err)
		}
		data[id] = out
	}

	r.candles = candles
	for id, out := range data {
		r.instances[id].Data = out
	}
	r.recordOperation("set_candles")

	logger.Info("Replaced candle set",
		logger.Int("candles", len(candles)),
		logger.Int("instances", len(data)),
	)
	return nil
}

// Candles returns a copy of the current candle set
func (r *Registry) Candles() []models.Candle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Candle(nil), r.candles...)
}

// Snapshot exports every instance without its data, in insertion order
func (r *Registry) Snapshot() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Spec, 0, len(r.order))
	for _, id := range r.order {
		inst := r.instances[id]
		out = append(out, Spec{
			ID:      inst.ID,
			Type:    inst.Type,
			Visible: inst.Visible,
			Config:  inst.Config.Clone(),
		})
	}
	return out
}

// Restore replaces every instance with specs. Spec configs are merged over
// the type defaults; spec ids are kept unless empty or repeated. Nothing
// changes when any spec fails.
func (r *Registry) Restore(specs []Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	instances := make(map[string]*Instance, len(specs))
	order := make([]string, 0, len(specs))
	for i, spec := range specs {
		cfg, err := r.resolveConfig(spec)
		if err != nil {
			return fmt.Errorf("restore entry %d: %w", i, err)
		}
		data, err := r.catalog.Compute(spec.Type, r.candles, cfg)
		if err != nil {
			return fmt.Errorf("restore entry %d: %w", i, err)
		}

		id := spec.ID
		if _, taken := instances[id]; id == "" || taken {
			id = r.newIDExcluding(instances)
		}
		instances[id] = &Instance{ID: id, Type: spec.Type, Visible: spec.Visible, Config: cfg, Data: data}
		order = append(order, id)
	}

	r.instances = instances
	r.order = order
	r.recordOperation("restore")
	return nil
}

// Summary collects the events of visible instances
type Summary struct {
	Crosses     []InstanceCross      `json:"crosses"`
	Divergences []InstanceDivergence `json:"divergences"`
}

// InstanceCross is a cross tagged with the instance that produced it
type InstanceCross struct {
	InstanceID string         `json:"instanceId"`
	Type       indicator.Type `json:"type"`
	signal.Cross
}

// InstanceDivergence is a divergence tagged with its instance
type InstanceDivergence struct {
	InstanceID string         `json:"instanceId"`
	Type       indicator.Type `json:"type"`
	signal.Divergence
}

// Signals gathers crosses and divergences of all visible instances, most
// recent first
func (r *Registry) Signals() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := Summary{
		Crosses:     []InstanceCross{},
		Divergences: []InstanceDivergence{},
	}
	for _, id := range r.order {
		inst := r.instances[id]
		if !inst.Visible || inst.Data == nil {
			continue
		}
		for _, c := range inst.Data.Crosses {
			summary.Crosses = append(summary.Crosses, InstanceCross{InstanceID: id, Type: inst.Type, Cross: c})
		}
		for _, d := range inst.Data.Divergences {
			summary.Divergences = append(summary.Divergences, InstanceDivergence{InstanceID: id, Type: inst.Type, Divergence: d})
		}
	}

	sort.SliceStable(summary.Crosses, func(i, j int) bool {
		return summary.Crosses[i].Index > summary.Crosses[j].Index
	})
	sort.SliceStable(summary.Divergences, func(i, j int) bool {
		return summary.Divergences[i].End.Index > summary.Divergences[j].End.Index
	})
	return summary
}

func (r *Registry) list(visibleOnly bool) []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Instance, 0, len(r.order))
	for _, id := range r.order {
		inst := r.instances[id]
		if visibleOnly && !inst.Visible {
			continue
		}
		out = append(out, inst.clone())
	}
	return out
}

// resolveConfig merges a spec config over its type defaults
func (r *Registry) resolveConfig(spec Spec) (indicator.Config, error) {
	def, err := r.catalog.Get(spec.Type)
	if err != nil {
		return nil, err
	}
	return def.Schema().Normalize(def.Schema().Defaults().Merge(spec.Config))
}

func (r *Registry) insert(inst *Instance) {
	r.instances[inst.ID] = inst
	r.order = append(r.order, inst.ID)
}

// freshID draws ids until one is unused. Caller holds the lock.
func (r *Registry) freshID() string {
	return r.newIDExcluding(r.instances)
}

func (r *Registry) newIDExcluding(taken map[string]*Instance) string {
	for {
		id := r.ids.NewID()
		if _, exists := taken[id]; !exists && id != "" {
			return id
		}
	}
}

// recordOperation updates metrics. Caller holds the lock.
func (r *Registry) recordOperation(op string) {
	logger.OverlayOperations.WithLabelValues(op).Inc()
	logger.OverlayInstances.Set(float64(len(r.order)))
}

func (i *Instance) clone() Instance {
	out := *i
	out.Config = i.Config.Clone()
	return out
}
