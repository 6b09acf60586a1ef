package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQuotaExceeded is returned by MemoryKV when a value is larger than its quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// KV is a flat string key/value store, the server-side counterpart of a
// browser's local storage.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV keeps everything in a map. MaxValueBytes > 0 rejects larger values.
type MemoryKV struct {
	MaxValueBytes int

	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	if m.MaxValueBytes > 0 && len(value) > m.MaxValueBytes {
		return fmt.Errorf("%w: %d bytes for %q", ErrQuotaExceeded, len(value), key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
