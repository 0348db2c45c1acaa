package kvstore

import "sync"

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(id string) (map[string]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values, ok := m.entries[id]
	if !ok {
		return nil, false, nil
	}
	return clone(values), true, nil
}

func (m *MemoryStore) Set(id string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[id] = clone(values)
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
