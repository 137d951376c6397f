package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

// MockCandleStorage is a mock implementation of CandleStorage for testing
type MockCandleStorage struct {
	Candles   map[string][]models.Candle
	LatestErr error
	Closed    bool
}

func (m *MockCandleStorage) GetLatestCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error) {
	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	all := m.Candles[symbol]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.Candle(nil), all...), nil
}

func (m *MockCandleStorage) Close() error {
	m.Closed = true
	return nil
}

// MockRedisClient is an in-memory RedisClient for testing
type MockRedisClient struct {
	mu        sync.Mutex
	Data      map[string]string
	Sets      map[string]map[string]struct{}
	GetErr    error
	SetErr    error
	DeleteErr error
	PingErr   error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data: make(map[string]string),
		Sets: make(map[string]map[string]struct{}),
	}
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = string(jsonData)
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Data[key], nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	m.mu.Lock()
	value, exists := m.Data[key]
	m.mu.Unlock()
	if !exists {
		return nil // Return nil if key doesn't exist (like real implementation)
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) Delete(ctx context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	delete(m.Sets, key)
	return nil
}

func (m *MockRedisClient) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Data[key]
	if !exists {
		_, exists = m.Sets[key]
	}
	return exists, nil
}

func (m *MockRedisClient) SetAdd(ctx context.Context, key string, members ...string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.Sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.Sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

// SetMembers returns members sorted, where Redis gives no order
func (m *MockRedisClient) SetMembers(ctx context.Context, key string) ([]string, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Sets[key]))
	for member := range m.Sets[key] {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockRedisClient) SetRemove(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.Sets[key], member)
	}
	if len(m.Sets[key]) == 0 {
		delete(m.Sets, key)
	}
	return nil
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockRedisClient) Close() error {
	return nil
}
