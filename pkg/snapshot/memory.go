package snapshot

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps generations in memory. Values are stored encoded so callers never share
// mutable state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	current  []byte
	previous []byte
	results  map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: map[string][]byte{}}
}

func (m *MemoryStore) LoadCurrent() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.current)
}

func (m *MemoryStore) LoadPrevious() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.previous)
}

func (m *MemoryStore) SaveCurrent(s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	m.mu.Lock()
	m.current = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PromoteCurrentToPrevious() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNotFound
	}
	m.previous = m.current
	return nil
}

func (m *MemoryStore) WriteResult(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result %s: %w", name, err)
	}
	m.mu.Lock()
	m.results[name] = data
	m.mu.Unlock()
	return nil
}

// Result returns a stored artifact.
func (m *MemoryStore) Result(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.results[name]
	return b, ok
}

func decode(data []byte) (*Snapshot, error) {
	if data == nil {
		return nil, ErrNotFound
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
