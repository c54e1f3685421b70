// Package contentstore holds large tool payloads referenced from feed entries.
package contentstore

import (
	"fmt"
	"sync"

	"toolfeed/internal/domain"
)

// Memory is an append-only in-memory content store. Entries are never evicted,
// so indices stay valid for the lifetime of the process.
type Memory struct {
	mu      sync.RWMutex
	entries []string
}

var _ domain.ContentStore = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// Push appends content and returns its index.
func (m *Memory) Push(content string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, content)
	return len(m.entries) - 1
}

// Get returns the content stored at index.
func (m *Memory) Get(index int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.entries) {
		return "", domain.NewDomainError("Memory.Get", domain.ErrContentNotFound, fmt.Sprintf("index %d", index))
	}
	return m.entries[index], nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
