// Package kvbackend contains key-value backends for the emulator's object
// store.
package kvbackend

import (
	"context"
	"strings"
	"sync"

	"github.com/func/avictl/storage"
)

// Memory stores key-value pairs in memory. Values are copied on the way in and
// out.
//
// Data is lost when the process exits. Use Bolt to keep emulator state.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Put creates or updates a value.
func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = clone(value)
	return nil
}

// Get returns a single value.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(v), nil
}

// Delete deletes a key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.data, key)
	return nil
}

// Scan returns all keys under prefix. As with Bolt, prefix names a directory:
// only keys of the form prefix/<key> match.
func (m *Memory) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix+"/") && !strings.Contains(k[len(prefix)+1:], "/") {
			out[k] = clone(v)
		}
	}
	return out, nil
}
