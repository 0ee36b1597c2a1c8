package store

import (
	"sync"

	"github.com/yourusername/signal-engine/pkg/signal"
)

// MemoryStore satisfies Store without durability. Backtests and tests use it.
type MemoryStore struct {
	mu        sync.RWMutex
	active    map[string]*signal.Signal
	scheduled map[string]*signal.Signal
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active:    make(map[string]*signal.Signal),
		scheduled: make(map[string]*signal.Signal),
	}
}

func recordKey(strategy, symbol string) string { return strategy + ":" + symbol }

// ReadActive implements Store.
func (m *MemoryStore) ReadActive(strategy, symbol string) (*signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[recordKey(strategy, symbol)], nil
}

// WriteActive implements Store.
func (m *MemoryStore) WriteActive(strategy, symbol string, sig *signal.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sig == nil {
		delete(m.active, recordKey(strategy, symbol))
		return nil
	}
	m.active[recordKey(strategy, symbol)] = sig.Clone()
	return nil
}

// ReadScheduled implements Store.
func (m *MemoryStore) ReadScheduled(strategy, symbol string) (*signal.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scheduled[recordKey(strategy, symbol)], nil
}

// WriteScheduled implements Store.
func (m *MemoryStore) WriteScheduled(strategy, symbol string, sig *signal.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sig == nil {
		delete(m.scheduled, recordKey(strategy, symbol))
		return nil
	}
	m.scheduled[recordKey(strategy, symbol)] = sig.Clone()
	return nil
}
