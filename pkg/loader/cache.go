package loader

import (
	"sync"
)

// CacheEntry is a single module's cache record (spec §4.6): its
// canonical id, its current exports value, and whether execution has
// finished. Entries are inserted before a module's body runs so that a
// circular require observes the same *CacheEntry mid-execution - it sees
// whatever Exports held at the moment of re-entry rather than blocking or
// re-running the module, mirroring Node's require() cache semantics.
type CacheEntry struct {
	ID      string
	Exports interface{}
	Loaded  bool
}

// ModuleCache is the loader's module cache (C6): canonical id to
// CacheEntry, with cache-before-execute discipline enforced by its
// callers (cjs.go/esm.go) rather than by the cache itself, since only the
// executor knows the right moment to insert a placeholder entry ahead of
// running a module body.
type ModuleCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

// NewModuleCache constructs an empty module cache.
func NewModuleCache() *ModuleCache {
	return &ModuleCache{entries: make(map[string]*CacheEntry)}
}

// Get returns the cache entry for id, if one exists.
func (c *ModuleCache) Get(id string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Reserve inserts (if absent) a fresh, unloaded placeholder entry for id
// with the given initial exports value, returning the entry and whether
// it already existed. Executors call this immediately before running a
// module's body - the "cache-before-execute" step that lets a circular
// require see a live, if incomplete, exports object instead of
// recursing forever.
func (c *ModuleCache) Reserve(id string, initialExports interface{}) (entry *CacheEntry, alreadyCached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[id]; ok {
		return existing, true
	}
	entry = &CacheEntry{ID: id, Exports: initialExports}
	c.entries[id] = entry
	return entry, false
}

// Delete removes id from the cache, if present. Used when loading fails
// before a module's body runs (unreadable source, invalid JSON, a
// transform error, no script engine): the reserved entry is discarded so
// a subsequent require retries from scratch. An entry whose body itself
// raised is kept, Node-style.
func (c *ModuleCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear empties the entire module cache.
func (c *ModuleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Keys returns the canonical ids of every currently cached module, in no
// particular order.
func (c *ModuleCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
