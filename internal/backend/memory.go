package backend

import (
	"context"
	"sync"

	"github.com/existflow/oahu/internal/errs"
)

// Memory keeps records in process memory
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func memKey(kind, id string) string {
	return kind + "\x00" + id
}

func (m *Memory) Get(_ context.Context, kind, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[memKey(kind, id)]
	if !ok {
		return nil, errs.NotFound("backend.Get", nil)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(_ context.Context, kind, id string, data []byte) error {
	v := make([]byte, len(data))
	copy(v, data)
	m.mu.Lock()
	m.data[memKey(kind, id)] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	delete(m.data, memKey(kind, id))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// Len returns the number of stored entries
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
