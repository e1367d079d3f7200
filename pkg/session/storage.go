package session

import (
	"context"
	"sync"
	"time"

	"github.com/lepinkainen/seodash/pkg/database"
)

// Storage is a durable string key/value store
type Storage interface {
	// Get returns the value and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ExpiringStorage is a Storage whose entries can expire on their own
type ExpiringStorage interface {
	Storage
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

var (
	_ Storage         = (*MemoryStorage)(nil)
	_ ExpiringStorage = (*RedisStorage)(nil)
	_ ExpiringStorage = (*database.KVStore)(nil)
)

// MemoryStorage keeps entries for the lifetime of the process
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStorage returns an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]string)}
}

// Get implements Storage
func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set implements Storage
func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Delete implements Storage
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
