package strategy

import (
	"log"
	"sync"
)

// Cache memoizes cores by "<strategy>:<symbol>". The same strategy
// configuration on a different symbol gets its own instance and therefore
// fully isolated state.
type Cache struct {
	mu    sync.RWMutex
	cores map[string]*Core
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{cores: make(map[string]*Core)}
}

func cacheKey(strategy, symbol string) string { return strategy + ":" + symbol }

// GetOrCreate returns the memoized core for (strategy, symbol), building it
// under the lock on first use. Entries are long-lived.
func (c *Cache) GetOrCreate(symbol string, cfg CoreConfig) (*Core, error) {
	key := cacheKey(cfg.Strategy, symbol)

	c.mu.RLock()
	core, ok := c.cores[key]
	c.mu.RUnlock()
	if ok {
		return core, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if core, ok := c.cores[key]; ok {
		return core, nil
	}

	core, err := NewCore(symbol, cfg)
	if err != nil {
		return nil, err
	}
	c.cores[key] = core
	log.Printf("[InstanceCache] Created core %s", key)
	return core, nil
}

// Get returns the memoized core, or nil.
func (c *Cache) Get(strategy, symbol string) *Core {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cores[cacheKey(strategy, symbol)]
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(strategy, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cores, cacheKey(strategy, symbol))
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cores = make(map[string]*Core)
}

// Len returns the number of cached cores.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cores)
}
