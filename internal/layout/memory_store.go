package layout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

// MemoryStore keeps layouts for the process lifetime
type MemoryStore struct {
	mu      sync.RWMutex
	layouts map[string]Layout
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		layouts: make(map[string]Layout),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l = cloneLayout(l)
	l.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[l.Name] = l
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, name string) (Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.layouts[name]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", models.ErrLayoutNotFound, name)
	}
	return cloneLayout(l), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.layouts))
	for name := range s.layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layouts, name)
	return nil
}
