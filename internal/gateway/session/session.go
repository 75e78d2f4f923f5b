// Package session keeps one flow store per browser session, bounded by an
// LRU so abandoned sessions are dropped.
package session

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"sopflow/internal/flowstore"
)

const DefaultSize = 256

type Factory func() *flowstore.Store

type Manager struct {
	cache    *lru.Cache[string, *flowstore.Store]
	newStore Factory
}

func New(size int, factory Factory) (*Manager, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if factory == nil {
		return nil, fmt.Errorf("session: store factory is required")
	}
	cache, err := lru.New[string, *flowstore.Store](size)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Manager{cache: cache, newStore: factory}, nil
}

// Create starts a session with an empty store.
func (m *Manager) Create() (string, *flowstore.Store) {
	id := uuid.NewString()
	st := m.newStore()
	m.cache.Add(id, st)
	return id, st
}

// Get returns the store for id and marks it recently used.
func (m *Manager) Get(id string) (*flowstore.Store, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return m.cache.Get(id)
}

func (m *Manager) Remove(id string) bool {
	return m.cache.Remove(id)
}

func (m *Manager) Len() int { return m.cache.Len() }
