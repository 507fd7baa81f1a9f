package svccache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nabbar/abel/isolate"
	"github.com/nabbar/abel/service"
	"github.com/nabbar/abel/svcpool"
)

// DefaultSize bounds how many compiled isolates a single worker keeps
// warm at once.
const DefaultSize = 256

// entry is one cached isolate plus the weak service reference it was
// built against, used to detect staleness on the next touch.
type entry struct {
	weak *svcpool.Weak
	iso  *isolate.Isolate
}

// Cache is a per-worker bounded LRU mapping service name to (weak service
// ref, compiled isolate), with lazy invalidation on the next access rather
// than a global invalidation pass. Exactly one Cache exists per worker; it
// is never shared.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *entry]
}

// New builds an empty cache bounded to size entries.
func New(size int) *Cache {
	if size < 1 {
		size = DefaultSize
	}

	c, _ := lru.New[string, *entry](size)
	return &Cache{lru: c}
}

// Lookup implements the dispatch-time lookup policy: hit if present,
// weak-ref alive, and identity matches ref; otherwise evict the stale
// entry (if any) and report a miss so the caller rebuilds.
func (c *Cache) Lookup(name string, ref *service.Record) (*isolate.Isolate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(name)
	if !ok {
		return nil, false
	}

	if e.weak.PtrEq(ref) {
		return e.iso, true
	}

	c.lru.Remove(name)
	e.iso.Close()
	return nil, false
}

// Insert stores a freshly built isolate for name, evicting whatever was
// cached there before.
func (c *Cache) Insert(name string, weak *svcpool.Weak, iso *isolate.Isolate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(name); ok {
		old.iso.Close()
	}

	c.lru.Add(name, &entry{weak: weak, iso: iso})
}

// Drop removes and closes name's cached isolate, if any. Called when a
// service transitions to Stopped or is removed, so a stopped service
// leaves no live isolate behind.
func (c *Cache) Drop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Peek(name); ok {
		e.iso.Close()
		c.lru.Remove(name)
	}
}

// Sweep implements worker.Cleaner: evict every entry whose weak-ref has
// expired.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range c.lru.Keys() {
		e, ok := c.lru.Peek(name)
		if !ok {
			continue
		}
		if _, alive := e.weak.Upgrade(); !alive {
			e.iso.Close()
			c.lru.Remove(name)
		}
	}
}

// Len reports how many isolates are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
