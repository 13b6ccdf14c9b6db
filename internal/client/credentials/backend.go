package credentials

import (
	"context"
	"sync"
)

// Backend is durable credential storage. Implementations must apply each
// call atomically.
type Backend interface {
	Load(ctx context.Context) (Record, error)
	// Write stores the non-empty fields of rec. With replace set, fields
	// that are empty in rec are removed in the same step.
	Write(ctx context.Context, rec Record, replace bool) error
	Clear(ctx context.Context) error
}

// MemoryBackend keeps the record in process memory.
type MemoryBackend struct {
	mu  sync.RWMutex
	rec Record
}

func NewMemoryBackend(initial Record) *MemoryBackend {
	return &MemoryBackend{rec: initial}
}

func (m *MemoryBackend) Load(ctx context.Context) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec, nil
}

func (m *MemoryBackend) Write(ctx context.Context, rec Record, replace bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if replace {
		m.rec = rec
		return nil
	}
	m.rec = m.rec.merge(rec)
	return nil
}

func (m *MemoryBackend) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = Record{}
	return nil
}
