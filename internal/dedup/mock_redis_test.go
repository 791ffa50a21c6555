package dedup

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockRedisClient emulates the atomic SET NX and EXISTS commands.
type MockRedisClient struct {
	mu       sync.Mutex
	store    map[string]time.Duration
	err      error
	lastTTL  time.Duration
	setCalls int
	closed   bool

	// AfterExists, when set, runs after every EXISTS outside the lock.
	AfterExists func(key string)
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: make(map[string]time.Duration)}
}

func (m *MockRedisClient) SetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = errors.New(msg)
}

func (m *MockRedisClient) KeyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

func (m *MockRedisClient) HasKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[key]
	return ok
}

func (m *MockRedisClient) LastTTL() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTTL
}

func (m *MockRedisClient) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

func (m *MockRedisClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockRedisClient) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.err != nil {
		return false, m.err
	}
	if _, exists := m.store[key]; exists {
		return false, nil
	}
	m.store[key] = ttl
	m.lastTTL = ttl
	return true, nil
}

func (m *MockRedisClient) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	err := m.err
	_, ok := m.store[key]
	hook := m.AfterExists
	m.mu.Unlock()
	if err != nil {
		return false, err
	}
	if hook != nil {
		hook(key)
	}
	return ok, nil
}

func (m *MockRedisClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
