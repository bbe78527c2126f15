package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps encoded values in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get decodes a copy of the value stored under key.
func (m *MemoryStore) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("kv decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores an encoded copy of value under key.
func (m *MemoryStore) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %q: %w", key, err)
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	return nil
}
