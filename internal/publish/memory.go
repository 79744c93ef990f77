package publish

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"artipub/internal/storage"
)

// MemoryStore keeps objects in memory. The CLI uses it for dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	puts    []string
}

type memoryObject struct {
	content     []byte
	contentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) PutObject(_ context.Context, objectKey string, content []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = memoryObject{content: append([]byte(nil), content...), contentType: contentType}
	m.puts = append(m.puts, objectKey)
	return nil
}

func (m *MemoryStore) GetObject(_ context.Context, objectKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("%s: %w", objectKey, storage.ErrObjectNotFound)
	}
	return append([]byte(nil), obj.content...), nil
}

func (m *MemoryStore) ContentType(objectKey string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[objectKey].contentType
}

// Puts returns the keys written so far, in order.
func (m *MemoryStore) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
