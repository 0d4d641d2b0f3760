// Package formula evaluates config-driven derivation formulas (e.g.
// "loa * beam * draft * cb") against a parameter environment, so recompute
// functions aren't limited to hardcoded Go expressions.
package formula

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// cache is a thread-safe LRU cache of compiled expression programs, keyed by
// formula source text.
type cache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.RWMutex
}

type cacheEntry struct {
	formula string
	program *vm.Program
}

func newCache(capacity int) *cache {
	if capacity <= 0 {
		capacity = 100
	}
	return &cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *cache) get(formula string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[formula]; ok {
		c.lru.MoveToFront(el)
		return el.Value.(*cacheEntry).program, true
	}
	return nil, false
}

func (c *cache) put(formula string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[formula]; ok {
		c.lru.MoveToFront(el)
		el.Value.(*cacheEntry).program = program
		return
	}
	el := c.lru.PushFront(&cacheEntry{formula: formula, program: program})
	c.entries[formula] = el
	if c.lru.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *cache) evictOldest() {
	oldest := c.lru.Back()
	if oldest == nil {
		return
	}
	c.lru.Remove(oldest)
	delete(c.entries, oldest.Value.(*cacheEntry).formula)
}

// Len returns the number of compiled programs currently cached.
func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}
