package cache

import (
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	expires time.Time
}

// memory is the in-process fallback. A single mutex guards the map.
type memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func newMemory() *memory {
	return &memory{entries: make(map[string]memEntry), now: time.Now}
}

func (m *memory) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *memory) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl)}
	m.mu.Unlock()
}

func (m *memory) delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *memory) clear(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}
