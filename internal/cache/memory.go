package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	stale   bool
	expires time.Time
}

// MemoryStore is a process-local Store. Invalidated entries are kept but marked stale
// until the next Set replaces them.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*entry
	byType  map[string]map[string]struct{}
	gens    map[string]int64
}

// NewMemoryStore creates a MemoryStore; ttl <= 0 disables expiry
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
		byType:  make(map[string]map[string]struct{}),
		gens:    make(map[string]int64),
	}
}

func (m *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key.String()]
	if !ok || e.stale {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		e.stale = true
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Generation(_ context.Context, entity string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[entity], nil
}

// Set stores value unless key.Entity was invalidated after gen was read
func (m *MemoryStore) Set(_ context.Context, key Key, value []byte, gen int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gens[key.Entity] != gen {
		return nil
	}

	e := &entry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	k := key.String()
	m.entries[k] = e

	if m.byType[key.Entity] == nil {
		m.byType[key.Entity] = make(map[string]struct{})
	}
	m.byType[key.Entity][k] = struct{}{}
	return nil
}

// Invalidate marks every entry of the entities (and their dependents) stale in all scopes
func (m *MemoryStore) Invalidate(_ context.Context, entities ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entity := range Expand(entities...) {
		m.gens[entity]++
		for k := range m.byType[entity] {
			if e, ok := m.entries[k]; ok {
				e.stale = true
			}
		}
	}
	return nil
}

// Stale reports whether key is present but stale
func (m *MemoryStore) Stale(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key.String()]
	return ok && e.stale
}

// Len returns the number of entries, stale included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
