package store

import (
	"bytes"
	"sync"
)

// MemoryBackend keeps records in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[Key][]byte
	closed  bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[Key][]byte)}
}

func (m *MemoryBackend) Exists(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrStoreClosed
	}
	_, ok := m.records[key]
	return ok, nil
}

func (m *MemoryBackend) Read(key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	data, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (m *MemoryBackend) Write(key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.records[key] = bytes.Clone(data)
	return nil
}

func (m *MemoryBackend) Remove(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrStoreClosed
	}
	if _, ok := m.records[key]; !ok {
		return false, nil
	}
	delete(m.records, key)
	return true, nil
}

func (m *MemoryBackend) List(typeName string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	var keys []Key
	for k := range m.records {
		if k.Type == typeName {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys, nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.closed = true
	m.records = nil
	return nil
}
