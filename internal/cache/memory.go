package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMemoryCapacity bounds a Memory store created without a capacity
const DefaultMemoryCapacity = 10000

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store holding at most capacity entries. The
// least recently used entry is evicted when full. Expired entries are
// dropped on read and by Cleanup.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	// order front is the most recently used entry
	order *list.List
	now   func() time.Time
}

// NewMemory creates an empty store with DefaultMemoryCapacity
func NewMemory() *Memory {
	return NewMemoryWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryWithCapacity creates an empty store holding at most capacity
// entries. A non-positive capacity uses DefaultMemoryCapacity.
func NewMemoryWithCapacity(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get implements Store
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	e := el.Value.(*memoryEntry)
	if m.now().After(e.expiresAt) {
		m.remove(el)
		return nil, ErrMiss
	}
	m.order.MoveToFront(el)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set implements Store
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(ttl)
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value = stored
		e.expiresAt = expiresAt
		m.order.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, value: stored, expiresAt: expiresAt})
	for len(m.entries) > m.capacity {
		m.remove(m.order.Back())
	}
	return nil
}

// Delete implements Store
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		m.remove(el)
	}
	return nil
}

// Len returns the number of stored entries, including expired ones
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Cleanup drops every expired entry and returns how many were removed
func (m *Memory) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*memoryEntry).expiresAt) {
			m.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

// remove must be called with mu held
func (m *Memory) remove(el *list.Element) {
	m.order.Remove(el)
	delete(m.entries, el.Value.(*memoryEntry).key)
}
