package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockS3Client keeps objects in memory keyed by bucket/key. Failures are
// injected per operation name ("put", "get", "head").
type MockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]error
	puts    []string
}

func NewMockS3Client() *MockS3Client {
	return &MockS3Client{objects: make(map[string][]byte), fail: make(map[string]error)}
}

func (m *MockS3Client) FailOn(op, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = errors.New(msg)
}

func (m *MockS3Client) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

func (m *MockS3Client) PutObject(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["put"]; err != nil {
		return err
	}
	m.objects[bucket+"/"+key] = append([]byte(nil), data...)
	m.puts = append(m.puts, bucket+"/"+key)
	return nil
}

func (m *MockS3Client) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["get"]; err != nil {
		return nil, err
	}
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	return append([]byte(nil), data...), nil
}

func (m *MockS3Client) HeadObject(_ context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["head"]; err != nil {
		return false, err
	}
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}
