package overlay

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out instance ids. A registry owns its generator, so two
// registries never share id state.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDs
type UUIDGenerator struct{}

// NewID implements IDGenerator
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// CounterGenerator issues prefix-1, prefix-2, ...
type CounterGenerator struct {
	prefix string
	next   atomic.Uint64
}

// NewCounterGenerator creates a counter starting at 1
func NewCounterGenerator(prefix string) *CounterGenerator {
	return &CounterGenerator{prefix: prefix}
}

// NewID implements IDGenerator
func (g *CounterGenerator) NewID() string {
	n := g.next.Add(1)
	if g.prefix == "" {
		return strconv.FormatUint(n, 10)
	}
	return g.prefix + "-" + strconv.FormatUint(n, 10)
}
