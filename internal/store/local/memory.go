package local

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV for tests. It stands in for the SQLite kv
// table and can be made to fail with FailWith.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements KV.
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

// FailWith makes every later call return err; nil restores normal behavior.
func (m *MemoryKV) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
